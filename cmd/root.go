package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/wksim/internal/config"
	"github.com/abhisek/wksim/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "wksim",
	Short: "WaniKani progression forecaster",
	Long: "Wksim forecasts your WaniKani level and daily review load by " +
		"replaying your own review statistics through thousands of simulated runs.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite cache file (overrides WKSIM_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")

	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration honoring the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(configFile)
}

// resolveDBPath returns the cache path using --db flag (highest
// priority), then the configuration (which binds WKSIM_DB), then the
// default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}
