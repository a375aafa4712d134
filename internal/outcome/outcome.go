// Package outcome builds an empirical model of review outcomes from
// historical review data: for each starting SRS stage, a discrete
// probability distribution over ending stages.
package outcome

import (
	"errors"
	"math/rand"

	"github.com/abhisek/wksim/internal/model"
)

// ErrNoReviews is returned when the review history is empty. Without at
// least one observed outcome there is nothing to model.
var ErrNoReviews = errors.New("outcome: no review history")

// StageWeight is one weighted bucket of a Distribution.
type StageWeight struct {
	Stage  model.Stage
	Weight int
}

// Distribution is a discrete distribution over ending stages. Weights
// are raw tallies; the probability of a bucket is Weight/Total.
type Distribution struct {
	total   int
	buckets []StageWeight
}

func newDistribution(buckets []StageWeight) Distribution {
	total := 0
	for _, b := range buckets {
		total += b.Weight
	}
	return Distribution{total: total, buckets: buckets}
}

// IsEmpty reports whether the distribution has no weight at all.
func (d Distribution) IsEmpty() bool {
	return d.total == 0
}

// Total returns the sum of all bucket weights.
func (d Distribution) Total() int {
	return d.total
}

// Buckets returns the weighted buckets in ending-stage order. Stages are
// not necessarily unique: extrapolated rows can clamp several source
// buckets onto the same ending stage.
func (d Distribution) Buckets() []StageWeight {
	out := make([]StageWeight, len(d.buckets))
	copy(out, d.buckets)
	return out
}

// Sample draws an ending stage proportionally to the bucket weights.
// The second return is false only for an empty distribution.
func (d Distribution) Sample(rng *rand.Rand) (model.Stage, bool) {
	if d.total == 0 {
		return 0, false
	}
	x := rng.Intn(d.total)
	for _, b := range d.buckets {
		if x < b.Weight {
			return b.Stage, true
		}
		x -= b.Weight
	}
	return 0, false
}

// shifted returns a copy of the distribution with every ending stage
// moved up by offset, clamped to the valid stage range.
func (d Distribution) shifted(offset int) Distribution {
	buckets := make([]StageWeight, len(d.buckets))
	copy(buckets, d.buckets)
	for i := range buckets {
		s := int(buckets[i].Stage) + offset
		if s < 0 {
			s = 0
		}
		if s > model.NumStages-1 {
			s = model.NumStages - 1
		}
		buckets[i].Stage = model.Stage(s)
	}
	return Distribution{total: d.total, buckets: buckets}
}

// Model holds one outcome Distribution per starting stage. Immutable
// after Build; safe to share across concurrent trials.
type Model struct {
	byStartStage [model.NumStages]Distribution
}

// Build tallies the review history into per-starting-stage distributions.
// The SRS variant on each review is ignored: it changes scheduling, not
// outcomes.
//
// High stages a learner has not reached yet have no history. Those rows
// (everything above the last observed starting stage, except Burned) are
// synthesized by shifting the last observed row up by the stage offset.
// This assumes the outcome shape stays stable at higher stages; it is a
// stand-in heuristic kept for compatibility with observed behavior, not
// a principled model.
func Build(reviews []model.Review) (*Model, error) {
	var tally [model.NumStages][model.NumStages]int
	for _, r := range reviews {
		tally[r.StartStage][r.EndStage]++
	}

	m := &Model{}
	for start := 0; start < model.NumStages; start++ {
		var buckets []StageWeight
		for end := 0; end < model.NumStages; end++ {
			if n := tally[start][end]; n > 0 {
				buckets = append(buckets, StageWeight{Stage: model.Stage(end), Weight: n})
			}
		}
		m.byStartStage[start] = newDistribution(buckets)
	}

	last := -1
	for start := model.NumStages - 1; start >= 0; start-- {
		if !m.byStartStage[start].IsEmpty() {
			last = start
			break
		}
	}
	if last < 0 {
		return nil, ErrNoReviews
	}

	// Burned subjects are never reviewed again, so that row stays empty.
	for start := last + 1; start < model.NumStages-1; start++ {
		m.byStartStage[start] = m.byStartStage[last].shifted(start - last)
	}

	return m, nil
}

// SampleFor draws an ending stage for a review that starts at start.
// The second return is false only if the distribution for start is
// empty, which Build's extrapolation prevents for any stage that is
// ever scheduled.
func (m *Model) SampleFor(rng *rand.Rand, start model.Stage) (model.Stage, bool) {
	return m.byStartStage[start].Sample(rng)
}

// DistributionFor returns the distribution for a starting stage.
func (m *Model) DistributionFor(start model.Stage) Distribution {
	return m.byStartStage[start]
}
