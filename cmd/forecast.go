package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/wksim/internal/catalog"
	"github.com/abhisek/wksim/internal/forecast"
	"github.com/abhisek/wksim/internal/outcome"
	"github.com/abhisek/wksim/internal/sim"
	"github.com/abhisek/wksim/internal/store"
	"github.com/abhisek/wksim/internal/ui"
)

const progressWidth = 60

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Simulate future progression from the cached study state",
	Long: "Forecast runs many randomized simulations of your reviews, lessons and " +
		"level-ups, and prints the average level and review count per day.",
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().Int("trials", 0, "Number of simulation trials (overrides config)")
	forecastCmd.Flags().Int("days", 0, "Simulated horizon in days (overrides config)")
	forecastCmd.Flags().Int64("seed", 0, "Random seed for reproducible runs (0 = random)")
	forecastCmd.Flags().Int("parallelism", 0, "Concurrent trial workers (0 = one per CPU)")
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := forecast.Options{
		Trials:      cfg.Forecast.Trials,
		HorizonDays: cfg.Forecast.HorizonDays,
		Parallelism: cfg.Forecast.Parallelism,
	}
	if v, _ := cmd.Flags().GetInt("trials"); v > 0 {
		opts.Trials = v
	}
	if v, _ := cmd.Flags().GetInt("days"); v > 0 {
		opts.HorizonDays = v
	}
	if v, _ := cmd.Flags().GetInt("parallelism"); v > 0 {
		opts.Parallelism = v
	}
	opts.Seed, _ = cmd.Flags().GetInt64("seed")

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reviews, err := st.Reviews(ctx)
	if err != nil {
		return err
	}
	outcomes, err := outcome.Build(reviews)
	if err != nil {
		if errors.Is(err, outcome.ErrNoReviews) {
			return fmt.Errorf("%w; run `wksim sync` first", err)
		}
		return err
	}

	subjects, err := st.Subjects(ctx)
	if err != nil {
		return err
	}
	cat, err := catalog.New(subjects)
	if err != nil {
		return err
	}

	assignments, err := st.Assignments(ctx)
	if err != nil {
		return err
	}
	earliest, ok, err := st.NextReviewTime(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no scheduled reviews in the cache; nothing to simulate")
	}

	// The base engine is cloned per trial and never stepped itself, but
	// it still carries a generator so a clone-free caller works too.
	base, err := sim.New(outcomes, cat, assignments, earliest, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return err
	}

	opts.OnProgress = func(done, total int) {
		bar := ui.NewProgressBar("Simulating", float64(done)/float64(total), progressWidth)
		fmt.Fprintf(os.Stderr, "\r%s", bar.View())
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	res, err := forecast.Run(ctx, base, opts)
	if err != nil {
		return err
	}

	forecast.Render(cmd.OutOrStdout(), res)
	return nil
}
