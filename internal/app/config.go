package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenarioPaths []string // hcl/yaml files or directories
	Preset        string   // run a built-in soil preset instead of files
	Only          []string // restrict the batch to these run names
	OutputDir     string

	Workers         int
	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	CatalogPath     string
	UploadURL       string
	MaxWallClock    time.Duration
	EngineTimeout   time.Duration
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ScenarioPaths) == 0 && cfg.Preset == "" {
		return nil, errors.New("either a scenario path or a preset is required")
	}
	if len(cfg.ScenarioPaths) > 0 && cfg.Preset != "" {
		return nil, errors.New("a scenario path and a preset are mutually exclusive")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "results"
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.MaxWallClock < 0 {
		return nil, fmt.Errorf("max wall clock must not be negative, got %s", cfg.MaxWallClock)
	}
	return &cfg, nil
}
