package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration file at path and translates it into the
	// model. A missing file yields the defaults.
	Load(ctx context.Context, path string) (*Model, Converter, error)
}

// Converter evaluates the expressions of a Model for one build step.
type Converter interface {
	// Strings evaluates expr to a list of strings.
	Strings(ctx context.Context, expr hcl.Expression, vars StepVars) ([]string, error)
	// String evaluates expr to a single string.
	String(ctx context.Context, expr hcl.Expression, vars StepVars) (string, error)
}

// StepVars are the values visible to per-step expressions as the variables
// app, index and base_address.
type StepVars struct {
	App   string
	Index int
	Base  uint64
}
