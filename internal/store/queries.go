package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/abhisek/wksim/internal/model"
)

// The cached resources keep the WaniKani API envelope; the interesting
// fields live under $.data of each row's JSON blob.

type reviewData struct {
	SpacedRepetitionSystemID int64 `json:"spaced_repetition_system_id"`
	StartingSRSStage         int64 `json:"starting_srs_stage"`
	EndingSRSStage           int64 `json:"ending_srs_stage"`
}

type subjectRow struct {
	ID     int64  `db:"id"`
	Object string `db:"object"`
	Data   string `db:"data"`
}

type subjectData struct {
	Level                    int64   `json:"level"`
	SpacedRepetitionSystemID int64   `json:"spaced_repetition_system_id"`
	ComponentSubjectIDs      []int64 `json:"component_subject_ids"`
	AmalgamationSubjectIDs   []int64 `json:"amalgamation_subject_ids"`
}

type assignmentData struct {
	SubjectID   int64   `json:"subject_id"`
	SRSStage    int64   `json:"srs_stage"`
	AvailableAt *string `json:"available_at"`
}

// Reviews returns every cached historical review.
func (s *Store) Reviews(ctx context.Context) ([]model.Review, error) {
	var blobs []string
	if err := s.db.SelectContext(ctx, &blobs, `SELECT json_extract(data, '$.data') FROM reviews`); err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}

	reviews := make([]model.Review, 0, len(blobs))
	for _, blob := range blobs {
		var d reviewData
		if err := json.Unmarshal([]byte(blob), &d); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		srs, err := model.SrsFromInt(d.SpacedRepetitionSystemID)
		if err != nil {
			return nil, fmt.Errorf("review: %w", err)
		}
		start, err := model.StageFromInt(d.StartingSRSStage)
		if err != nil {
			return nil, fmt.Errorf("review starting stage: %w", err)
		}
		end, err := model.StageFromInt(d.EndingSRSStage)
		if err != nil {
			return nil, fmt.Errorf("review ending stage: %w", err)
		}
		reviews = append(reviews, model.Review{Srs: srs, StartStage: start, EndStage: end})
	}
	return reviews, nil
}

// Subjects returns every cached curriculum subject.
func (s *Store) Subjects(ctx context.Context) ([]model.Subject, error) {
	var rows []subjectRow
	query := `SELECT id, object, json_extract(data, '$.data') AS data FROM subjects`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select subjects: %w", err)
	}

	subjects := make([]model.Subject, 0, len(rows))
	for _, row := range rows {
		id, err := subjectIDFromInt(row.ID)
		if err != nil {
			return nil, err
		}
		kind, err := model.KindFromString(row.Object)
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", row.ID, err)
		}

		var d subjectData
		if err := json.Unmarshal([]byte(row.Data), &d); err != nil {
			return nil, fmt.Errorf("decode subject %d: %w", row.ID, err)
		}
		if d.Level < 1 || d.Level > model.MaxLevel {
			return nil, fmt.Errorf("subject %d: invalid level %d", row.ID, d.Level)
		}
		srs, err := model.SrsFromInt(d.SpacedRepetitionSystemID)
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", row.ID, err)
		}
		dependsOn, err := subjectIDList(d.ComponentSubjectIDs)
		if err != nil {
			return nil, fmt.Errorf("subject %d components: %w", row.ID, err)
		}
		dependedOnBy, err := subjectIDList(d.AmalgamationSubjectIDs)
		if err != nil {
			return nil, fmt.Errorf("subject %d amalgamations: %w", row.ID, err)
		}

		subjects = append(subjects, model.Subject{
			ID:           id,
			Level:        uint8(d.Level),
			Kind:         kind,
			Srs:          srs,
			DependsOn:    dependsOn,
			DependedOnBy: dependedOnBy,
		})
	}
	return subjects, nil
}

// Assignments returns the current per-subject study state.
func (s *Store) Assignments(ctx context.Context) ([]model.Assignment, error) {
	var blobs []string
	if err := s.db.SelectContext(ctx, &blobs, `SELECT json_extract(data, '$.data') FROM assignments`); err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}

	assignments := make([]model.Assignment, 0, len(blobs))
	for _, blob := range blobs {
		var d assignmentData
		if err := json.Unmarshal([]byte(blob), &d); err != nil {
			return nil, fmt.Errorf("decode assignment: %w", err)
		}
		id, err := subjectIDFromInt(d.SubjectID)
		if err != nil {
			return nil, err
		}
		stage, err := model.StageFromInt(d.SRSStage)
		if err != nil {
			return nil, fmt.Errorf("assignment for subject %d: %w", d.SubjectID, err)
		}

		var nextReview *time.Time
		if d.AvailableAt != nil {
			t, err := time.Parse(time.RFC3339, *d.AvailableAt)
			if err != nil {
				return nil, fmt.Errorf("assignment for subject %d: parse available_at: %w", d.SubjectID, err)
			}
			nextReview = &t
		}

		assignments = append(assignments, model.Assignment{
			SubjectID:      id,
			Stage:          stage,
			NextReviewTime: nextReview,
		})
	}
	return assignments, nil
}

// NextReviewTime returns the earliest scheduled review time across all
// assignments, used as the simulation's time origin. ok is false when no
// assignment has a scheduled review.
func (s *Store) NextReviewTime(ctx context.Context) (time.Time, bool, error) {
	var min sql.NullString
	query := `SELECT min(json_extract(data, '$.data.available_at')) FROM assignments`
	if err := s.db.GetContext(ctx, &min, query); err != nil {
		return time.Time{}, false, fmt.Errorf("select next review time: %w", err)
	}
	if !min.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, min.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse next review time: %w", err)
	}
	return t, true, nil
}

func subjectIDFromInt(v int64) (model.SubjectID, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("invalid subject id %d", v)
	}
	return model.SubjectID(v), nil
}

func subjectIDList(vs []int64) ([]model.SubjectID, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	ids := make([]model.SubjectID, len(vs))
	for i, v := range vs {
		id, err := subjectIDFromInt(v)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
