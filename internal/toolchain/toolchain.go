// Package toolchain runs the external compiler/linker for one application.
// The driver only sees the Invoker capability, so tests substitute an
// InvokerFunc instead of shelling out.
package toolchain

import (
	"context"
	"fmt"
	"time"
)

// Target is what one build step asks the toolchain to produce.
type Target struct {
	App   string
	Index int
	Base  uint64
}

// Outcome describes a finished toolchain run.
type Outcome struct {
	ExitCode int
	Duration time.Duration
}

// Invoker builds one target. A nil error means the toolchain reported
// success; a non-zero exit status, a failure to start or a timeout is an
// error.
type Invoker interface {
	Build(ctx context.Context, target Target) (Outcome, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, target Target) (Outcome, error)

// Build calls f.
func (f InvokerFunc) Build(ctx context.Context, target Target) (Outcome, error) {
	return f(ctx, target)
}

// ExitError reports a toolchain run that finished with a non-zero status.
type ExitError struct {
	Args     []string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("toolchain %q exited with status %d", e.Args, e.ExitCode)
}

// TimeoutError reports a toolchain run that was killed after its deadline.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("toolchain %q did not finish within %s", e.Args, e.Timeout)
}
