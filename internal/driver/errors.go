package driver

import (
	"fmt"
	"strings"

	"github.com/vk/stridelink/internal/layout"
)

// BuildFailure records that the toolchain failed for one application.
type BuildFailure struct {
	App   string
	Index int
	Base  uint64
	Err   error
}

func (e *BuildFailure) Error() string {
	return fmt.Sprintf("build of %s (index %d, base %s) failed: %v", e.App, e.Index, layout.FormatAddress(e.Base), e.Err)
}

func (e *BuildFailure) Unwrap() error { return e.Err }

// RunError is returned when every step ran but some builds failed.
type RunError struct {
	Failures []*BuildFailure
}

func (e *RunError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.App
	}
	return fmt.Sprintf("%d application(s) failed to build: %s", len(e.Failures), strings.Join(names, ", "))
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
