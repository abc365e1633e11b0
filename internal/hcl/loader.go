package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/stridelink/internal/config"
	"github.com/vk/stridelink/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the build file at path. It is not an error if the file does
// not exist; the defaults are returned instead. Relative paths in the file
// are resolved against the file's directory.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	model, err := Defaults()
	if err != nil {
		return nil, nil, err
	}

	if path == "" {
		logger.Debug("No build file given, using defaults.")
		return model, NewConverter(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Build file not found, using defaults.", "path", path)
			return model, NewConverter(), nil
		}
		return nil, nil, fmt.Errorf("error accessing build file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model.Source = path
	if err := l.translate(ctx, &root, filepath.Dir(path), model); err != nil {
		return nil, nil, fmt.Errorf("invalid build file %s: %w", path, err)
	}

	logger.Debug("HCL loading complete.",
		"origin", model.Layout.Origin,
		"stride", model.Layout.Stride,
		"template", model.Template.Path,
		"apps_dir", model.Apps.Dir,
	)
	return model, NewConverter(), nil
}

// Defaults returns the model used when no build file is present.
func Defaults() (*config.Model, error) {
	command, err := ParseExpression(config.DefaultCommand, "<default>")
	if err != nil {
		return nil, fmt.Errorf("invalid default command: %w", err)
	}
	return &config.Model{
		Layout: config.Layout{
			Origin: config.DefaultOrigin,
			Stride: config.DefaultStride,
		},
		Template: config.Template{Path: config.DefaultTemplatePath},
		Apps:     config.Apps{Dir: config.DefaultAppsDir},
		Toolchain: config.Toolchain{
			Command: command,
		},
	}, nil
}

// translate applies every block present in root onto model.
func (l *Loader) translate(ctx context.Context, root *fileRoot, baseDir string, model *config.Model) error {
	// Defaults are relative to the build file too.
	model.Template.Path = resolvePath(baseDir, model.Template.Path)
	model.Apps.Dir = resolvePath(baseDir, model.Apps.Dir)
	model.Toolchain.Dir = baseDir

	if b := root.Layout; b != nil {
		if isExprDefined(ctx, b.Origin, "origin") {
			origin, err := decodeAddress(b.Origin, "layout.origin")
			if err != nil {
				return err
			}
			model.Layout.Origin = origin
		}
		if isExprDefined(ctx, b.Stride, "stride") {
			stride, err := decodeAddress(b.Stride, "layout.stride")
			if err != nil {
				return err
			}
			model.Layout.Stride = stride
		}
		if b.MaxApps != nil {
			model.Layout.MaxApps = *b.MaxApps
		}
	}

	if b := root.Template; b != nil {
		if b.Path != nil {
			model.Template.Path = resolvePath(baseDir, *b.Path)
		}
		if b.Token != nil {
			model.Template.Token = *b.Token
		}
	}

	if b := root.Apps; b != nil && b.Dir != nil {
		model.Apps.Dir = resolvePath(baseDir, *b.Dir)
	}

	if b := root.Toolchain; b != nil {
		if isExprDefined(ctx, b.Command, "command") {
			if err := checkVariables(b.Command); err != nil {
				return err
			}
			model.Toolchain.Command = b.Command
		}
		if b.Dir != nil {
			model.Toolchain.Dir = resolvePath(baseDir, *b.Dir)
		}
		if b.Timeout != nil {
			timeout, err := time.ParseDuration(*b.Timeout)
			if err != nil {
				return fmt.Errorf("toolchain.timeout: %w", err)
			}
			if timeout < 0 {
				return fmt.Errorf("toolchain.timeout must not be negative, got %s", timeout)
			}
			model.Toolchain.Timeout = timeout
		}
		model.Toolchain.Env = b.Env
	}

	if b := root.Artifact; b != nil {
		// gohcl fills a missing expression attribute with a placeholder
		// instead of reporting it.
		if !isExprDefined(ctx, b.Path, "path") {
			return fmt.Errorf("artifact.path is required")
		}
		if err := checkVariables(b.Path); err != nil {
			return err
		}
		model.Artifact = &config.Artifact{Path: b.Path}
		if b.Verify != nil {
			model.Artifact.Verify = *b.Verify
		}
	}

	if b := root.Manifest; b != nil {
		model.Manifest = &config.Manifest{
			Path: resolvePath(baseDir, b.Path),
			// elf_dir is emitted verbatim into the manifest and resolved by
			// the assembler, not by us.
			ElfDir: b.ElfDir,
		}
	}

	if b := root.Report; b != nil {
		model.Report = &config.Report{Path: resolvePath(baseDir, b.Path)}
	}

	return nil
}
