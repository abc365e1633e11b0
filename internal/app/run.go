package app

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/vk/stridelink/internal/artifact"
	"github.com/vk/stridelink/internal/config"
	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/discovery"
	"github.com/vk/stridelink/internal/driver"
	"github.com/vk/stridelink/internal/layout"
	"github.com/vk/stridelink/internal/linkerscript"
	"github.com/vk/stridelink/internal/manifest"
	"github.com/vk/stridelink/internal/report"
	"github.com/vk/stridelink/internal/toolchain"
)

// Run executes one build run: discover the applications, hold the linker
// script for the whole run and build every application in order.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	apps, err := discovery.Discover(ctx, a.model.Apps.Dir)
	if err != nil {
		return err
	}
	a.logger.Info("Applications discovered.", "count", len(apps), "dir", a.model.Apps.Dir)

	lay := layout.Layout{
		Origin:  a.model.Layout.Origin,
		Stride:  a.model.Layout.Stride,
		MaxApps: a.model.Layout.MaxApps,
	}
	store := linkerscript.NewFileStore(a.model.Template.Path)

	opts := []driver.Option{driver.WithOutput(a.outW)}
	if a.model.Artifact != nil && a.model.Artifact.Verify {
		opts = append(opts, driver.WithVerifier(driver.VerifierFunc(a.verifyArtifact)))
	}
	drv := driver.New(driver.Config{Layout: lay, Token: a.model.Template.Token}, store, a.invoker(), opts...)

	if a.cfg.Plan {
		return a.printPlan(drv, apps)
	}

	release, err := store.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			a.logger.Warn("Failed to release linker script lock.", "error", err)
		}
	}()

	if _, err := store.CheckStale(ctx, a.cfg.RecoverStale); err != nil {
		return err
	}

	rep, runErr := drv.Run(ctx, apps)
	if rep != nil && a.model.Report != nil {
		if err := report.WriteFile(ctx, a.model.Report.Path, a.toReport(lay, rep)); err != nil {
			a.logger.Error("Failed to write address report.", "error", err)
		}
	}
	if runErr != nil {
		if a.model.Manifest != nil {
			a.logger.Warn("Skipping application manifest, the run did not succeed.", "path", a.model.Manifest.Path)
		}
		return runErr
	}

	if a.model.Manifest != nil {
		if err := manifest.WriteFile(ctx, a.model.Manifest.Path, apps, a.model.Manifest.ElfDir); err != nil {
			return err
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// invoker builds the exec-backed toolchain from the model.
func (a *App) invoker() toolchain.Invoker {
	tc := a.model.Toolchain
	env := make([]string, 0, len(tc.Env))
	for _, k := range slices.Sorted(maps.Keys(tc.Env)) {
		env = append(env, k+"="+tc.Env[k])
	}

	return &toolchain.Exec{
		Resolve: func(ctx context.Context, target toolchain.Target) (toolchain.Command, error) {
			args, err := a.converter.Strings(ctx, tc.Command, stepVars(target))
			if err != nil {
				return toolchain.Command{}, err
			}
			return toolchain.Command{Args: args, Dir: tc.Dir, Env: env}, nil
		},
		Timeout: tc.Timeout,
		Stdout:  a.errW,
		Stderr:  a.errW,
	}
}

// verifyArtifact checks that the binary of target was linked at its base
// address.
func (a *App) verifyArtifact(ctx context.Context, target toolchain.Target) error {
	path, err := a.converter.String(ctx, a.model.Artifact.Path, stepVars(target))
	if err != nil {
		return fmt.Errorf("failed to resolve artifact path: %w", err)
	}
	if !filepath.IsAbs(path) && a.model.Toolchain.Dir != "" {
		path = filepath.Join(a.model.Toolchain.Dir, path)
	}
	ctxlog.FromContext(ctx).Debug("Verifying artifact load address.", "path", path)
	return artifact.VerifyLoadAddress(path, target.Base)
}

func (a *App) printPlan(drv *driver.Driver, apps []string) error {
	assignments, err := drv.Plan(apps)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "token %s in %s\n", drv.Token(), a.model.Template.Path)
	for _, as := range assignments {
		fmt.Fprintf(a.outW, "%4d  %-24s %s\n", as.Index, as.App, layout.FormatAddress(as.Base))
	}
	a.logger.Info("Plan printed, nothing was built.", "apps", len(assignments))
	return nil
}

func (a *App) toReport(lay layout.Layout, rep *driver.Report) *report.Report {
	out := &report.Report{
		Layout:      lay,
		Template:    a.model.Template.Path,
		GeneratedAt: time.Now(),
	}
	for _, s := range rep.Steps {
		e := report.Entry{App: s.App, Index: s.Index, Base: s.Base}
		switch s.Status {
		case driver.StepSucceeded:
			e.Status = report.StatusOK
		case driver.StepFailed, driver.StepAborted:
			e.Status = report.StatusFailed
		default:
			e.Status = report.StatusSkipped
		}
		if s.Err != nil {
			e.Error = s.Err.Error()
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

func stepVars(t toolchain.Target) config.StepVars {
	return config.StepVars{App: t.App, Index: t.Index, Base: t.Base}
}
