package app

import (
	"errors"
	"time"
)

// DefaultConfigPath is the build file looked up when none is given.
const DefaultConfigPath = "stridelink.hcl"

// Config holds all the necessary configuration for an App instance to run.
// Zero-valued overrides leave the build file's settings in place.
type Config struct {
	ConfigPath string // hcl build file

	// Overrides of the build file.
	AppsDir      string
	TemplatePath string
	Origin       *uint64
	Stride       *uint64
	Command      string // HCL expression
	Timeout      time.Duration

	Plan         bool
	RecoverStale bool
	NoColor      bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}
	if cfg.Stride != nil && *cfg.Stride == 0 {
		return nil, errors.New("stride must be greater than zero")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
