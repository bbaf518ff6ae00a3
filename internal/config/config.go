// Package config loads cmaqgrid command settings.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/geal-ai/cmaqgrid"
)

// Config holds command configuration.
type Config struct {
	Radius   float64 `mapstructure:"radius"`
	LogLevel string  `mapstructure:"log_level"`
	File     string  `mapstructure:"file"`
	// Grid is used when no IOAPI file is given.
	Grid *cmaqgrid.GridMetadata `mapstructure:"grid"`
}

// Load reads configuration from defaults, an optional cmaqgrid.yaml in dir
// (or the working directory when dir is empty), and CMAQGRID_* environment
// variables, in increasing priority.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("radius", cmaqgrid.DefaultRadius)
	v.SetDefault("log_level", "warn")
	v.SetDefault("file", "")

	v.SetConfigName("cmaqgrid")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// CMAQGRID_LOG_LEVEL → log_level
	v.SetEnvPrefix("CMAQGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that configuration fields are sane.
func (c *Config) Validate() error {
	var errs []string

	if math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) || c.Radius <= 0 {
		errs = append(errs, fmt.Sprintf("radius must be finite and > 0, got %g", c.Radius))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Grid != nil {
		if err := c.Grid.Validate(); err != nil {
			errs = append(errs, "grid: "+err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log_level %q (debug, info, warn, error)", s)
}
