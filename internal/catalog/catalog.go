// Package catalog holds the immutable in-memory index of all curriculum
// subjects and their dependency edges, loaded once per run.
package catalog

import (
	"fmt"
	"strings"

	"github.com/abhisek/wksim/internal/model"
)

// Catalog indexes subjects by identity and by level. It is built once
// from the cache and never mutated, so it is safe to share across
// concurrent simulation trials.
type Catalog struct {
	byID    map[model.SubjectID]model.Subject
	byLevel map[uint8][]model.SubjectID
}

// New builds a Catalog and validates that the dependency edges are
// closed over the subject set. A subject snapshot with dangling edges is
// corrupt and cannot be simulated.
func New(subjects []model.Subject) (*Catalog, error) {
	c := &Catalog{
		byID:    make(map[model.SubjectID]model.Subject, len(subjects)),
		byLevel: make(map[uint8][]model.SubjectID),
	}
	for _, s := range subjects {
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("catalog: duplicate subject %d", s.ID)
		}
		c.byID[s.ID] = s
		c.byLevel[s.Level] = append(c.byLevel[s.Level], s.ID)
	}

	var errs []string
	for _, s := range subjects {
		for _, dep := range s.DependsOn {
			if _, ok := c.byID[dep]; !ok {
				errs = append(errs, fmt.Sprintf("subject %d depends on nonexistent subject %d", s.ID, dep))
			}
		}
		for _, dep := range s.DependedOnBy {
			if _, ok := c.byID[dep]; !ok {
				errs = append(errs, fmt.Sprintf("subject %d depended on by nonexistent subject %d", s.ID, dep))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return c, nil
}

// ByID returns the subject with the given identity. The catalog is
// complete by construction, so a miss is a programming error and panics.
func (c *Catalog) ByID(id model.SubjectID) model.Subject {
	s, ok := c.byID[id]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown subject %d", id))
	}
	return s
}

// Contains reports whether a subject with the given identity exists.
func (c *Catalog) Contains(id model.SubjectID) bool {
	_, ok := c.byID[id]
	return ok
}

// WithLevel returns the identities of all subjects at the given level.
// Order is unspecified.
func (c *Catalog) WithLevel(level uint8) []model.SubjectID {
	ids := c.byLevel[level]
	out := make([]model.SubjectID, len(ids))
	copy(out, ids)
	return out
}

// Len returns the number of subjects in the catalog.
func (c *Catalog) Len() int {
	return len(c.byID)
}
