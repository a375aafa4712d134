// Package forecast runs many independent simulation trials and
// aggregates them into a per-day forecast of level and review volume.
package forecast

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/wksim/internal/sim"
)

// hoursPerDay is the number of engine steps in one forecast day.
const hoursPerDay = 24

// Options configures a forecast run.
type Options struct {
	// Trials is the number of independent simulations to average over.
	Trials int
	// HorizonDays is the simulated horizon of each trial.
	HorizonDays int
	// Seed makes the run reproducible. Zero means seed from the clock.
	Seed int64
	// Parallelism is the number of concurrent workers. Zero means one
	// per CPU.
	Parallelism int
	// OnProgress, if set, is called after every finished trial with the
	// completed and total counts. Calls are serialized.
	OnProgress func(done, total int)
}

// DayStat is the aggregated outcome of one simulated day.
type DayStat struct {
	Day        int
	AvgLevel   float64
	AvgReviews float64
}

// Result is the aggregated outcome of a forecast run.
type Result struct {
	Trials int
	Seed   int64
	Days   []DayStat
}

// accumulator collects per-day sums for a subset of trials. Each worker
// owns one, so no locking is needed until the final merge.
type accumulator struct {
	levels  []uint64
	reviews []uint64
}

func newAccumulator(days int) *accumulator {
	return &accumulator{
		levels:  make([]uint64, days),
		reviews: make([]uint64, days),
	}
}

func (a *accumulator) merge(b *accumulator) {
	for i := range a.levels {
		a.levels[i] += b.levels[i]
		a.reviews[i] += b.reviews[i]
	}
}

// Run executes opts.Trials independent clones of the base engine and
// averages their per-day level and review counts. Trials are spread
// over a worker pool; trial i always draws from a generator seeded with
// seed+i, so a fixed seed reproduces the run regardless of parallelism.
func Run(ctx context.Context, base *sim.Engine, opts Options) (*Result, error) {
	if opts.Trials < 1 {
		return nil, fmt.Errorf("forecast: trials must be >= 1, got %d", opts.Trials)
	}
	if opts.HorizonDays < 1 {
		return nil, fmt.Errorf("forecast: horizon must be >= 1 days, got %d", opts.HorizonDays)
	}

	workers := opts.Parallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > opts.Trials {
		workers = opts.Trials
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var (
		progressMu sync.Mutex
		done       int
	)
	reportProgress := func() {
		if opts.OnProgress == nil {
			return
		}
		progressMu.Lock()
		done++
		opts.OnProgress(done, opts.Trials)
		progressMu.Unlock()
	}

	accs := make([]*accumulator, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		acc := newAccumulator(opts.HorizonDays)
		accs[w] = acc
		first := w
		g.Go(func() error {
			for trial := first; trial < opts.Trials; trial += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng := rand.New(rand.NewSource(seed + int64(trial)))
				runTrial(base.Clone(rng), acc)
				reportProgress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := accs[0]
	for _, acc := range accs[1:] {
		total.merge(acc)
	}

	res := &Result{
		Trials: opts.Trials,
		Seed:   seed,
		Days:   make([]DayStat, opts.HorizonDays),
	}
	for day := range res.Days {
		res.Days[day] = DayStat{
			Day:        day,
			AvgLevel:   float64(total.levels[day]) / float64(opts.Trials),
			AvgReviews: float64(total.reviews[day]) / float64(opts.Trials),
		}
	}
	return res, nil
}

// runTrial steps one engine clone through the horizon, recording the
// level at the start of each day and the reviews done during it.
func runTrial(eng *sim.Engine, acc *accumulator) {
	for day := range acc.levels {
		acc.levels[day] += uint64(eng.Level())
		dayReviews := 0
		for h := 0; h < hoursPerDay; h++ {
			dayReviews += eng.Step()
		}
		acc.reviews[day] += uint64(dayReviews)
	}
}
