package app

import (
	"errors"

	"github.com/vk/stridelink/internal/linkerscript"
)

// Process exit codes.
const (
	ExitOK = 0
	// ExitFailed covers failed builds and any error without a dedicated code.
	ExitFailed = 1
	ExitUsage  = 2
	// ExitScript means the run stopped to protect the linker script; the
	// script itself is intact.
	ExitScript = 3
	// ExitCorrupted means the linker script could not be restored.
	ExitCorrupted = 4
)

// ConfigError reports an invalid build configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode maps a run error to the process exit code. A corrupted linker
// script wins over everything else; a *driver.RunError maps to ExitFailed.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		restoreErr *linkerscript.RestoreError
		readErr    *linkerscript.ReadError
		patchErr   *linkerscript.PatchError
		staleErr   *linkerscript.StaleBackupError
		lockErr    *linkerscript.LockError
		cfgErr     *ConfigError
	)
	switch {
	case errors.As(err, &restoreErr):
		return ExitCorrupted
	case errors.As(err, &readErr), errors.As(err, &patchErr), errors.As(err, &staleErr), errors.As(err, &lockErr):
		return ExitScript
	case errors.As(err, &cfgErr):
		return ExitUsage
	default:
		return ExitFailed
	}
}
