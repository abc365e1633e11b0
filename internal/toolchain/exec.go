package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/vk/stridelink/internal/ctxlog"
)

// Command is a fully resolved toolchain invocation.
type Command struct {
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// Resolver turns a target into the command that builds it.
type Resolver func(ctx context.Context, target Target) (Command, error)

// Exec is an Invoker that runs a local process per target.
type Exec struct {
	Resolve Resolver
	// Timeout bounds one run. Zero means no limit.
	Timeout time.Duration
	// Stdout and Stderr receive the toolchain's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Build resolves and runs the command for target and waits for it. The
// target's name, index and base address are exported as STRIDELINK_APP,
// STRIDELINK_INDEX and STRIDELINK_BASE_ADDRESS.
func (e *Exec) Build(ctx context.Context, target Target) (Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	cmdSpec, err := e.Resolve(ctx, target)
	if err != nil {
		return Outcome{ExitCode: -1}, fmt.Errorf("failed to resolve toolchain command for %s: %w", target.App, err)
	}
	if len(cmdSpec.Args) == 0 {
		return Outcome{ExitCode: -1}, fmt.Errorf("toolchain command for %s is empty", target.App)
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, cmdSpec.Args[0], cmdSpec.Args[1:]...)
	cmd.Dir = cmdSpec.Dir
	cmd.Env = append(os.Environ(), cmdSpec.Env...)
	cmd.Env = append(cmd.Env,
		"STRIDELINK_APP="+target.App,
		"STRIDELINK_INDEX="+strconv.Itoa(target.Index),
		"STRIDELINK_BASE_ADDRESS=0x"+strconv.FormatUint(target.Base, 16),
	)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	// Children that outlive a killed toolchain must not keep Wait blocked on
	// the output pipes.
	cmd.WaitDelay = time.Second

	logger.Debug("Invoking toolchain.", "args", cmdSpec.Args, "dir", cmdSpec.Dir)
	start := time.Now()
	runErr := cmd.Run()
	outcome := Outcome{Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		outcome.ExitCode = -1
	}

	if runErr == nil {
		return outcome, nil
	}
	if e.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return outcome, &TimeoutError{Args: cmdSpec.Args, Timeout: e.Timeout}
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return outcome, &ExitError{Args: cmdSpec.Args, ExitCode: outcome.ExitCode}
	}
	return outcome, fmt.Errorf("failed to run toolchain %q: %w", cmdSpec.Args, runErr)
}
