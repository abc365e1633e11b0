package driver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stridelink/internal/layout"
	"github.com/vk/stridelink/internal/linkerscript"
	"github.com/vk/stridelink/internal/toolchain"
)

const script = `OUTPUT_ARCH(riscv)
ENTRY(_start)
BASE_ADDRESS = 0x80400000;
SECTIONS { . = BASE_ADDRESS; }
`

var rcoreLayout = layout.Layout{Origin: 0x80400000, Stride: 0x20000}

// buildCall captures what the toolchain saw for one build.
type buildCall struct {
	App    string
	Base   uint64
	Script string
}

// recorder is a toolchain stub that records the script content visible
// during each build and fails the apps listed in fail.
type recorder struct {
	store *linkerscript.MemStore
	fail  map[string]error
	calls []buildCall
}

func (r *recorder) Build(ctx context.Context, target toolchain.Target) (toolchain.Outcome, error) {
	r.calls = append(r.calls, buildCall{App: target.App, Base: target.Base, Script: r.store.Content()})
	if err, ok := r.fail[target.App]; ok {
		return toolchain.Outcome{ExitCode: 101}, err
	}
	return toolchain.Outcome{}, nil
}

func (r *recorder) apps() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.App
	}
	return out
}

func TestRun_AssignsAddressesAndRestoresScript(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	store := linkerscript.NewMemStore(script)
	rec := &recorder{store: store}
	out := &bytes.Buffer{}
	d := New(Config{Layout: rcoreLayout}, store, rec, WithOutput(out))

	// --- Act ---
	report, err := d.Run(context.Background(), []string{"a", "b", "c"})

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, report.Succeeded())
	require.Equal(t, script, store.Content(), "script must be byte-identical after the run")
	require.False(t, store.HasBackup())

	want := []buildCall{
		{App: "a", Base: 0x80400000, Script: script},
		{App: "b", Base: 0x80420000, Script: strings.Replace(script, "0x80400000", "0x80420000", 1)},
		{App: "c", Base: 0x80440000, Script: strings.Replace(script, "0x80400000", "0x80440000", 1)},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("toolchain calls mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, out.String(), "application a start with address 0x80400000")
	assert.Contains(t, out.String(), "application b start with address 0x80420000")
	assert.Contains(t, out.String(), "application c start with address 0x80440000")
}

func TestRun_ScriptDuringSecondStep(t *testing.T) {
	t.Parallel()

	store := linkerscript.NewMemStore(script)
	rec := &recorder{store: store}
	d := New(Config{Layout: rcoreLayout}, store, rec)

	_, err := d.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	during := rec.calls[1].Script
	assert.Equal(t, 1, strings.Count(during, "0x80420000"))
	assert.Zero(t, strings.Count(during, "0x80400000"))
	assert.Equal(t, 1, strings.Count(store.Content(), "0x80400000"))
}

func TestRun_ToolchainFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	store := linkerscript.NewMemStore(script)
	cargoErr := errors.New("cargo exited with status 101")
	rec := &recorder{store: store, fail: map[string]error{"b": cargoErr}}
	out := &bytes.Buffer{}
	d := New(Config{Layout: rcoreLayout}, store, rec, WithOutput(out))

	// --- Act ---
	report, err := d.Run(context.Background(), []string{"a", "b", "c"})

	// --- Assert ---
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	require.Equal(t, "b", runErr.Failures[0].App)
	require.Equal(t, uint64(0x80420000), runErr.Failures[0].Base)
	require.ErrorIs(t, err, cargoErr)

	require.Equal(t, []string{"a", "b", "c"}, rec.apps(), "later applications must still build")
	require.Equal(t, strings.Replace(script, "0x80400000", "0x80440000", 1), rec.calls[2].Script,
		"step c must start from a restored script")
	require.Equal(t, script, store.Content())

	require.Equal(t, []StepStatus{StepSucceeded, StepFailed, StepSucceeded}, statuses(report))
	assert.Contains(t, out.String(), "application b FAILED")
	assert.Contains(t, out.String(), "2 built, 1 failed")
}

func TestRun_ZeroApplications(t *testing.T) {
	t.Parallel()

	store := linkerscript.NewMemStore(script)
	rec := &recorder{store: store}
	d := New(Config{Layout: rcoreLayout}, store, rec)

	report, err := d.Run(context.Background(), nil)

	require.NoError(t, err)
	require.Empty(t, report.Steps)
	require.True(t, report.Succeeded())
	require.Empty(t, rec.calls)
	require.Zero(t, store.Writes(), "template must be untouched")
	require.Equal(t, script, store.Content())
}

func TestRun_TokenMissingAbortsRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	drifted := strings.ReplaceAll(script, "0x80400000", "0x80200000")
	store := linkerscript.NewMemStore(drifted)
	rec := &recorder{store: store}
	d := New(Config{Layout: rcoreLayout}, store, rec)

	// --- Act ---
	report, err := d.Run(context.Background(), []string{"a", "b"})

	// --- Assert ---
	var perr *linkerscript.PatchError
	require.ErrorAs(t, err, &perr)
	require.Empty(t, rec.calls, "no build may run against an unpatched script")
	require.Equal(t, drifted, store.Content())
	require.False(t, store.HasBackup())
	require.Equal(t, []StepStatus{StepAborted, StepSkipped}, statuses(report))
}

func TestRun_ReadFailureAbortsBeforeMutation(t *testing.T) {
	t.Parallel()

	store := linkerscript.NewMemStore(script)
	store.ReadErr = errors.New("permission denied")
	rec := &recorder{store: store}
	d := New(Config{Layout: rcoreLayout}, store, rec)

	report, err := d.Run(context.Background(), []string{"a", "b"})

	var rerr *linkerscript.ReadError
	require.ErrorAs(t, err, &rerr)
	require.Zero(t, store.Writes())
	require.Empty(t, rec.calls)
	require.Equal(t, []StepStatus{StepAborted, StepSkipped}, statuses(report))
}

func TestRun_RestoreFailureAbortsLoudly(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	store := linkerscript.NewMemStore(script)
	store.WriteErr = func(n int) error {
		// Write 1 patches a, write 2 restores it.
		if n == 2 {
			return errors.New("no space left on device")
		}
		return nil
	}
	cargoErr := errors.New("cargo failed")
	rec := &recorder{store: store, fail: map[string]error{"a": cargoErr}}
	out := &bytes.Buffer{}
	d := New(Config{Layout: rcoreLayout}, store, rec, WithOutput(out))

	// --- Act ---
	report, err := d.Run(context.Background(), []string{"a", "b"})

	// --- Assert ---
	var restoreErr *linkerscript.RestoreError
	require.ErrorAs(t, err, &restoreErr, "restore failure takes priority over the build failure")
	var runErr *RunError
	require.False(t, errors.As(err, &runErr))
	require.Equal(t, []string{"a"}, rec.apps())
	require.Equal(t, []StepStatus{StepAborted, StepSkipped}, statuses(report))
	assert.Contains(t, out.String(), "ABORTED")
}

func TestRun_CustomToken(t *testing.T) {
	t.Parallel()

	store := linkerscript.NewMemStore("BASE_ADDRESS = @BASE@;")
	rec := &recorder{store: store}
	d := New(Config{Layout: rcoreLayout, Token: "@BASE@"}, store, rec)

	_, err := d.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, "BASE_ADDRESS = 0x80400000;", rec.calls[0].Script)
	require.Equal(t, "BASE_ADDRESS = 0x80420000;", rec.calls[1].Script)
	require.Equal(t, "BASE_ADDRESS = @BASE@;", store.Content())
}

func TestRun_VerifierFailureIsBuildFailure(t *testing.T) {
	t.Parallel()

	store := linkerscript.NewMemStore(script)
	rec := &recorder{store: store}
	mismatch := errors.New("linked at the wrong address")
	verify := VerifierFunc(func(ctx context.Context, target toolchain.Target) error {
		if target.App == "a" {
			return mismatch
		}
		return nil
	})
	d := New(Config{Layout: rcoreLayout}, store, rec, WithVerifier(verify))

	report, err := d.Run(context.Background(), []string{"a", "b"})

	require.ErrorIs(t, err, mismatch)
	require.Equal(t, []StepStatus{StepFailed, StepSucceeded}, statuses(report))
	require.Equal(t, script, store.Content())
}

func TestRun_LayoutErrorsBeforeMutation(t *testing.T) {
	t.Parallel()

	store := linkerscript.NewMemStore(script)
	rec := &recorder{store: store}
	d := New(Config{Layout: layout.Layout{Origin: 0x80400000, Stride: 0x20000, MaxApps: 1}}, store, rec)

	report, err := d.Run(context.Background(), []string{"a", "b"})

	require.ErrorIs(t, err, layout.ErrTooManyApps)
	require.Nil(t, report)
	require.Zero(t, store.Writes())
}

func TestRun_CancelledContextStopsBetweenSteps(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	store := linkerscript.NewMemStore(script)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var built []string
	inv := toolchain.InvokerFunc(func(ctx context.Context, target toolchain.Target) (toolchain.Outcome, error) {
		built = append(built, target.App)
		cancel()
		return toolchain.Outcome{}, nil
	})
	d := New(Config{Layout: rcoreLayout}, store, inv)

	// --- Act ---
	report, err := d.Run(ctx, []string{"a", "b", "c"})

	// --- Assert ---
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"a"}, built)
	require.Equal(t, []StepStatus{StepSucceeded, StepSkipped, StepSkipped}, statuses(report))
	require.Equal(t, script, store.Content())
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	run := func() []buildCall {
		store := linkerscript.NewMemStore(script)
		rec := &recorder{store: store}
		_, err := New(Config{Layout: rcoreLayout}, store, rec).Run(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		return rec.calls
	}
	require.Equal(t, run(), run())
}

func TestToken_DefaultsToOrigin(t *testing.T) {
	t.Parallel()

	d := New(Config{Layout: rcoreLayout}, linkerscript.NewMemStore(""), nil)
	require.Equal(t, "0x80400000", d.Token())
}

func statuses(r *Report) []StepStatus {
	out := make([]StepStatus, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Status
	}
	return out
}

func TestRun_ReportCoversEveryApplication(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	store := linkerscript.NewMemStore(script)
	rec := &recorder{store: store, fail: map[string]error{"a": errors.New("boom")}}
	d := New(Config{Layout: rcoreLayout}, store, rec)

	// --- Act ---
	report, err := d.Run(context.Background(), []string{"a", "b"})

	// --- Assert ---
	require.Error(t, err)
	want := []StepResult{
		{App: "a", Index: 0, Base: 0x80400000, Status: StepFailed},
		{App: "b", Index: 1, Base: 0x80420000, Status: StepSucceeded},
	}
	opts := cmpopts.IgnoreFields(StepResult{}, "Err", "Duration")
	if diff := cmp.Diff(want, report.Steps, opts); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}
