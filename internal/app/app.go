package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/vk/stridelink/internal/config"
	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/hcl"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	errW      io.Writer
	logger    *slog.Logger
	cfg       *Config
	model     *config.Model
	converter config.Converter
}

// NewApp loads the build file through loader, applies the overrides of cfg
// and returns a ready App. Progress goes to outW; logs and toolchain
// diagnostics go to errW.
func NewApp(outW, errW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if cfg.NoColor {
		color.Disable()
	}

	model, converter, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to load configuration: %w", err)}
	}
	if err := applyOverrides(model, cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}
	logger.Debug("Configuration loaded.", "source", model.Source)

	return &App{
		outW:      outW,
		errW:      errW,
		logger:    logger,
		cfg:       cfg,
		model:     model,
		converter: converter,
	}, nil
}

// Model returns the effective build configuration. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// applyOverrides lays the command-line settings over the loaded model.
// Override paths are relative to the working directory.
func applyOverrides(model *config.Model, cfg *Config) error {
	if cfg.AppsDir != "" {
		model.Apps.Dir = filepath.Clean(cfg.AppsDir)
	}
	if cfg.TemplatePath != "" {
		model.Template.Path = filepath.Clean(cfg.TemplatePath)
	}
	if cfg.Origin != nil {
		model.Layout.Origin = *cfg.Origin
	}
	if cfg.Stride != nil {
		model.Layout.Stride = *cfg.Stride
	}
	if cfg.Command != "" {
		expr, err := hcl.ParseExpression(cfg.Command, "<command flag>")
		if err != nil {
			return fmt.Errorf("invalid -command: %w", err)
		}
		model.Toolchain.Command = expr
	}
	if cfg.Timeout > 0 {
		model.Toolchain.Timeout = cfg.Timeout
	}
	if model.Layout.Stride == 0 {
		return fmt.Errorf("stride must be greater than zero")
	}
	return nil
}
