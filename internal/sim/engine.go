// Package sim implements the discrete-event progression simulator: it
// advances unlocked subjects through the SRS schedule one hour at a
// time, sampling review outcomes from the empirical model, unlocking
// dependents as their prerequisites pass, and raising the current level
// once enough of its kanji are passing.
package sim

import (
	"container/heap"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/abhisek/wksim/internal/catalog"
	"github.com/abhisek/wksim/internal/model"
	"github.com/abhisek/wksim/internal/outcome"
)

// ErrNoUnlockedSubjects is returned when the assignment snapshot is
// empty: with nothing unlocked there is nothing to simulate.
var ErrNoUnlockedSubjects = errors.New("sim: no unlocked subjects")

// levelPassNumerator / levelPassDenominator express the level gate:
// at least 90% of the current level's kanji must be passing.
const (
	levelPassNumerator   = 9
	levelPassDenominator = 10
)

// subjectState is the mutable simulation state of one unlocked subject.
// scheduled is false once the subject is burned; nextReview is then
// meaningless.
type subjectState struct {
	stage      model.Stage
	nextReview uint32
	scheduled  bool
}

// Engine simulates one learner's progression. The outcome model and
// catalog are shared read-only; everything else is per-engine mutable
// state, so independent trials each run on their own Clone.
type Engine struct {
	outcomes *outcome.Model
	subjects *catalog.Catalog
	rng      *rand.Rand

	curStep          uint32
	states           map[model.SubjectID]subjectState
	queue            reviewQueue
	curLevel         uint8
	curLevelSubjects []model.SubjectID
	curLevelKanji    []model.SubjectID
}

// New builds an engine from the current assignment snapshot.
//
// The simulation clock starts at the earliest scheduled review time,
// truncated down to the hour; each step is one hour. Assignments with a
// scheduled review keep their stage and are queued at their offset from
// that origin (clamped to now). Assignments without one are either
// unstarted (stage Initiate) — treated as if the lesson were done
// immediately, entering Apprentice 1 due at step 0 — or burned, which
// stay retired and are never queued.
func New(outcomes *outcome.Model, subjects *catalog.Catalog, assignments []model.Assignment, earliest time.Time, rng *rand.Rand) (*Engine, error) {
	if len(assignments) == 0 {
		return nil, ErrNoUnlockedSubjects
	}

	origin := earliest.Truncate(time.Hour)

	e := &Engine{
		outcomes: outcomes,
		subjects: subjects,
		rng:      rng,
		states:   make(map[model.SubjectID]subjectState, len(assignments)),
	}

	for _, a := range assignments {
		if !subjects.Contains(a.SubjectID) {
			return nil, fmt.Errorf("sim: assignment references unknown subject %d", a.SubjectID)
		}

		switch {
		case a.NextReviewTime != nil:
			if a.Stage == model.StageInitiate {
				return nil, fmt.Errorf("sim: subject %d has a scheduled review but no lesson done", a.SubjectID)
			}
			steps := int64(a.NextReviewTime.Sub(origin) / time.Hour)
			if steps < 0 {
				steps = 0
			}
			e.states[a.SubjectID] = subjectState{
				stage:      a.Stage,
				nextReview: uint32(steps),
				scheduled:  true,
			}
		case a.Stage == model.StageInitiate:
			e.states[a.SubjectID] = newlyUnlocked(0)
		case a.Stage == model.StageBurned:
			e.states[a.SubjectID] = subjectState{stage: model.StageBurned}
		default:
			return nil, fmt.Errorf("sim: subject %d at stage %s has no scheduled review", a.SubjectID, a.Stage)
		}
	}

	for id, st := range e.states {
		if st.scheduled {
			e.queue = append(e.queue, queueEntry{step: st.nextReview, id: id})
		}
	}
	heap.Init(&e.queue)

	// The current level is the highest level among unlocked subjects,
	// and unlocked subjects are exactly the keys of the state table.
	for id := range e.states {
		if lvl := subjects.ByID(id).Level; lvl > e.curLevel {
			e.curLevel = lvl
		}
	}
	e.refreshLevelLists()

	return e, nil
}

// newlyUnlocked is the state of a subject whose lesson was just done:
// Apprentice 1, reviewable immediately.
func newlyUnlocked(curStep uint32) subjectState {
	return subjectState{stage: model.StageApprentice1, nextReview: curStep, scheduled: true}
}

// Clone returns an independent copy of the engine sharing the immutable
// outcome model and catalog. The clone draws from its own rng, so clones
// can step concurrently.
func (e *Engine) Clone(rng *rand.Rand) *Engine {
	states := make(map[model.SubjectID]subjectState, len(e.states))
	for id, st := range e.states {
		states[id] = st
	}
	queue := make(reviewQueue, len(e.queue))
	copy(queue, e.queue)
	levelSubjects := make([]model.SubjectID, len(e.curLevelSubjects))
	copy(levelSubjects, e.curLevelSubjects)
	levelKanji := make([]model.SubjectID, len(e.curLevelKanji))
	copy(levelKanji, e.curLevelKanji)

	return &Engine{
		outcomes:         e.outcomes,
		subjects:         e.subjects,
		rng:              rng,
		curStep:          e.curStep,
		states:           states,
		queue:            queue,
		curLevel:         e.curLevel,
		curLevelSubjects: levelSubjects,
		curLevelKanji:    levelKanji,
	}
}

// Level returns the current curriculum level.
func (e *Engine) Level() uint8 {
	return e.curLevel
}

// Step advances simulated time by one hour and returns the number of
// reviews performed. A single step can cascade: reviews that pass can
// unlock dependents due immediately, which are reviewed in the same
// step, which can complete the level and unlock the next one, and so on
// until nothing is due.
func (e *Engine) Step() int {
	reviews := 0

	for e.hasAvailableReview() {
		for {
			id, ok := e.popAvailableReview()
			if !ok {
				break
			}
			reviews++
			e.review(id)
		}

		if e.curLevel < model.MaxLevel && e.passedCurrentLevel() {
			e.curLevel++
			e.refreshLevelLists()

			for _, id := range e.curLevelSubjects {
				if _, unlocked := e.states[id]; unlocked {
					continue
				}
				if e.mayUnlock(id) {
					e.unlock(id)
				}
			}
		}
	}

	e.curStep++
	return reviews
}

// review samples an outcome for one due subject, reschedules or retires
// it, and unlocks any dependents its passing makes eligible.
func (e *Engine) review(id model.SubjectID) {
	sub := e.subjects.ByID(id)
	st := e.states[id]

	oldStage := st.stage
	newStage, ok := e.outcomes.SampleFor(e.rng, oldStage)
	if !ok {
		// Build's extrapolation covers every stage that can be
		// scheduled; an empty distribution here is a bug, not data.
		panic(fmt.Sprintf("sim: no outcome distribution for stage %s", oldStage))
	}

	st.stage = newStage
	if hours, ok := sub.Srs.HoursToNextReview(newStage); ok {
		st.nextReview = e.curStep + hours
		st.scheduled = true
		heap.Push(&e.queue, queueEntry{step: st.nextReview, id: id})
	} else {
		// Burned: permanently retired, never requeued.
		st.scheduled = false
	}
	e.states[id] = st

	if !oldStage.IsPassing() && newStage.IsPassing() {
		for _, depID := range sub.DependedOnBy {
			if _, unlocked := e.states[depID]; unlocked {
				continue
			}
			if e.mayUnlock(depID) {
				e.unlock(depID)
			}
		}
	}
}

// unlock creates simulation state for a subject, due this step.
func (e *Engine) unlock(id model.SubjectID) {
	e.states[id] = newlyUnlocked(e.curStep)
	heap.Push(&e.queue, queueEntry{step: e.curStep, id: id})
}

// mayUnlock reports whether a subject is eligible for unlocking: its
// level must be reachable and every prerequisite already unlocked.
// Prerequisite mastery beyond "unlocked" does not matter here; the
// passing check happens on the prerequisite's own transition.
func (e *Engine) mayUnlock(id model.SubjectID) bool {
	sub := e.subjects.ByID(id)

	if sub.Level > e.curLevel {
		return false
	}
	for _, dep := range sub.DependsOn {
		if _, unlocked := e.states[dep]; !unlocked {
			return false
		}
	}
	return true
}

// passedCurrentLevel reports whether at least 90% of the current level's
// kanji are unlocked and passing. Locked kanji count against the
// threshold. Integer floor semantics: 11 kanji still need only 9.
func (e *Engine) passedCurrentLevel() bool {
	passed := 0
	for _, id := range e.curLevelKanji {
		if st, ok := e.states[id]; ok && st.stage.IsPassing() {
			passed++
		}
	}
	return passed >= len(e.curLevelKanji)*levelPassNumerator/levelPassDenominator
}

// refreshLevelLists recomputes the current level's subject list and its
// kanji subset.
func (e *Engine) refreshLevelLists() {
	e.curLevelSubjects = e.subjects.WithLevel(e.curLevel)
	e.curLevelKanji = nil
	for _, id := range e.curLevelSubjects {
		if e.subjects.ByID(id).Kind == model.KindKanji {
			e.curLevelKanji = append(e.curLevelKanji, id)
		}
	}
}

func (e *Engine) hasAvailableReview() bool {
	return len(e.queue) > 0 && e.queue[0].step <= e.curStep
}

// popAvailableReview removes and returns the next due review, if any.
func (e *Engine) popAvailableReview() (model.SubjectID, bool) {
	if !e.hasAvailableReview() {
		return 0, false
	}
	entry := heap.Pop(&e.queue).(queueEntry)
	return entry.id, true
}
