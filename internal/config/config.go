// Package config loads wksim settings from an optional YAML file and
// the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full wksim configuration.
type Config struct {
	WaniKani WaniKaniConfig `mapstructure:"wanikani"`
	Database DatabaseConfig `mapstructure:"database"`
	Forecast ForecastConfig `mapstructure:"forecast"`
}

type WaniKaniConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ForecastConfig struct {
	Trials      int `mapstructure:"trials"`
	HorizonDays int `mapstructure:"horizon_days"`
	Parallelism int `mapstructure:"parallelism"`
}

// Load reads the configuration. With an empty configFile it looks for
// config.yaml in the working directory and $HOME/.config/wksim; a
// missing file is fine, a malformed one is not.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wksim")
	}

	v.SetDefault("forecast.trials", 1000)
	v.SetDefault("forecast.horizon_days", 365)
	// 0 means one worker per CPU.
	v.SetDefault("forecast.parallelism", 0)
	v.SetDefault("database.path", "")

	// Secrets come from the environment only, never the config file.
	if err := v.BindEnv("wanikani.api_key", "WANIKANI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind WANIKANI_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("database.path", "WKSIM_DB"); err != nil {
		return nil, fmt.Errorf("bind WKSIM_DB environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if cfg.Forecast.Trials < 1 {
		return nil, fmt.Errorf("invalid configuration: forecast.trials must be >= 1, got %d", cfg.Forecast.Trials)
	}
	if cfg.Forecast.HorizonDays < 1 {
		return nil, fmt.Errorf("invalid configuration: forecast.horizon_days must be >= 1, got %d", cfg.Forecast.HorizonDays)
	}
	if cfg.Forecast.Parallelism < 0 {
		return nil, fmt.Errorf("invalid configuration: forecast.parallelism must be >= 0, got %d", cfg.Forecast.Parallelism)
	}

	return &cfg, nil
}
