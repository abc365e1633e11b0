package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/layout"
	"github.com/vk/stridelink/internal/linkerscript"
	"github.com/vk/stridelink/internal/toolchain"
)

// Config is the run-wide configuration of a Driver.
type Config struct {
	Layout layout.Layout
	// Token is the text replaced in the linker script by each step's base
	// address. Empty means the origin formatted as 0x-prefixed hex.
	Token string
}

// Verifier checks the artifact of a successful build.
type Verifier interface {
	Verify(ctx context.Context, target toolchain.Target) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, target toolchain.Target) error

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, target toolchain.Target) error {
	return f(ctx, target)
}

// Driver runs the build steps of one run.
type Driver struct {
	cfg      Config
	store    linkerscript.Store
	invoker  toolchain.Invoker
	verifier Verifier
	out      io.Writer
}

// Option configures a Driver.
type Option func(*Driver)

// WithVerifier checks every successfully built artifact with v. A failed
// check counts as a build failure of that application.
func WithVerifier(v Verifier) Option {
	return func(d *Driver) { d.verifier = v }
}

// WithOutput sets where progress lines and the summary are printed.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// New returns a Driver that patches store and builds through invoker.
func New(cfg Config, store linkerscript.Store, invoker toolchain.Invoker, opts ...Option) *Driver {
	d := &Driver{
		cfg:     cfg,
		store:   store,
		invoker: invoker,
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Token returns the text the driver substitutes in the linker script.
func (d *Driver) Token() string {
	if d.cfg.Token != "" {
		return d.cfg.Token
	}
	return layout.FormatAddress(d.cfg.Layout.Origin)
}

// Plan returns the address assignment of apps without building anything.
func (d *Driver) Plan(apps []string) ([]layout.Assignment, error) {
	return d.cfg.Layout.Assign(apps)
}

// Run builds apps in order. The returned report always covers every
// application. The error is nil when every build succeeded, a *RunError when
// only toolchain runs failed, and the fatal error otherwise.
func (d *Driver) Run(ctx context.Context, apps []string) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	assignments, err := d.Plan(apps)
	if err != nil {
		return nil, fmt.Errorf("failed to assign base addresses: %w", err)
	}

	report := &Report{Steps: make([]StepResult, len(assignments))}
	for i, a := range assignments {
		report.Steps[i] = StepResult{App: a.App, Index: a.Index, Base: a.Base, Status: StepSkipped}
	}

	if len(assignments) == 0 {
		logger.Warn("No applications found, nothing to build.")
		return report, nil
	}

	token := d.Token()
	logger.Info("🚀 Starting sequential build.",
		"apps", len(assignments),
		"origin", layout.FormatAddress(d.cfg.Layout.Origin),
		"stride", layout.FormatAddress(d.cfg.Layout.Stride),
		"token", token,
	)

	for i, a := range assignments {
		if err := ctx.Err(); err != nil {
			d.printSummary(report)
			return report, fmt.Errorf("run aborted before %s: %w", a.App, err)
		}

		res, fatal := d.step(ctx, a, token)
		report.Steps[i] = res
		d.printProgress(res)
		if fatal != nil {
			logger.Error("Aborting run, linker script integrity is at risk.", "app", a.App, "error", fatal)
			d.printSummary(report)
			return report, fatal
		}
	}

	d.printSummary(report)
	if failures := report.Failures(); len(failures) > 0 {
		return report, &RunError{Failures: failures}
	}
	logger.Info("🏁 Build finished.", "apps", len(assignments))
	return report, nil
}

// step runs one snapshot/patch/invoke/restore cycle. A non-nil error is fatal
// to the run.
func (d *Driver) step(ctx context.Context, a layout.Assignment, token string) (StepResult, error) {
	ctx, logger := ctxlog.With(ctx, "app", a.App, "index", a.Index, "base_address", layout.FormatAddress(a.Base))
	logger.Info("▶️ Building application.")

	target := toolchain.Target{App: a.App, Index: a.Index, Base: a.Base}
	res := StepResult{App: a.App, Index: a.Index, Base: a.Base}
	start := time.Now()

	var buildErr error
	err := linkerscript.Patch(ctx, d.store, token, layout.FormatAddress(a.Base), func(ctx context.Context) error {
		outcome, err := d.invoker.Build(ctx, target)
		if err != nil {
			buildErr = err
			return err
		}
		logger.Debug("Toolchain finished.", "exit_code", outcome.ExitCode, "duration", outcome.Duration)
		return nil
	})

	if err == nil && d.verifier != nil {
		buildErr = d.verifier.Verify(ctx, target)
	}
	res.Duration = time.Since(start)

	if isScriptError(err) {
		res.Status = StepAborted
		res.Err = err
		return res, err
	}
	if buildErr != nil {
		res.Status = StepFailed
		res.Err = &BuildFailure{App: a.App, Index: a.Index, Base: a.Base, Err: buildErr}
		logger.Error("❌ Build failed.", "error", buildErr, "duration", res.Duration)
		return res, nil
	}
	if err != nil {
		// Patch only returns script errors or the step's own error.
		res.Status = StepAborted
		res.Err = err
		return res, err
	}

	res.Status = StepSucceeded
	logger.Info("✅ Application built.", "duration", res.Duration)
	return res, nil
}

func isScriptError(err error) bool {
	var (
		restoreErr *linkerscript.RestoreError
		readErr    *linkerscript.ReadError
		patchErr   *linkerscript.PatchError
	)
	return errors.As(err, &restoreErr) || errors.As(err, &readErr) || errors.As(err, &patchErr)
}

func (d *Driver) printProgress(res StepResult) {
	addr := layout.FormatAddress(res.Base)
	switch res.Status {
	case StepSucceeded:
		fmt.Fprintln(d.out, color.Green.Sprintf("[stridelink] application %s start with address %s", res.App, addr))
	case StepFailed:
		fmt.Fprintln(d.out, color.Red.Sprintf("[stridelink] application %s FAILED (address %s): %v", res.App, addr, errors.Unwrap(res.Err)))
	case StepAborted:
		fmt.Fprintln(d.out, color.Red.Sprintf("[stridelink] application %s ABORTED (address %s): %v", res.App, addr, res.Err))
	}
}

func (d *Driver) printSummary(r *Report) {
	counts := make(map[StepStatus]int)
	for _, s := range r.Steps {
		counts[s.Status]++
	}

	line := fmt.Sprintf("[stridelink] %d built, %d failed, %d aborted, %d skipped",
		counts[StepSucceeded], counts[StepFailed], counts[StepAborted], counts[StepSkipped])
	if r.Succeeded() {
		fmt.Fprintln(d.out, color.Green.Sprint(line))
		return
	}
	fmt.Fprintln(d.out, color.Yellow.Sprint(line))
	for _, s := range r.Steps {
		if s.Status == StepFailed || s.Status == StepAborted {
			fmt.Fprintln(d.out, color.Red.Sprintf("  - %-20s %s", s.App, s.Status))
		}
	}
}
