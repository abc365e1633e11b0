package driver

import (
	"time"
)

// StepStatus is the outcome of one build step.
type StepStatus int

const (
	// StepSkipped means the step never ran because the run was aborted.
	StepSkipped StepStatus = iota
	StepSucceeded
	StepFailed
	// StepAborted means the step itself hit a fatal linker-script error.
	StepAborted
)

func (s StepStatus) String() string {
	switch s {
	case StepSucceeded:
		return "ok"
	case StepFailed:
		return "failed"
	case StepAborted:
		return "aborted"
	default:
		return "skipped"
	}
}

// StepResult describes one application of a run.
type StepResult struct {
	App    string
	Index  int
	Base   uint64
	Status StepStatus
	// Err is a *BuildFailure for StepFailed and the fatal error for
	// StepAborted.
	Err      error
	Duration time.Duration
}

// Report collects the results of a run in build-index order. Steps that never
// ran are present with StepSkipped.
type Report struct {
	Steps []StepResult
}

// Failures returns the applications whose toolchain run failed.
func (r *Report) Failures() []*BuildFailure {
	var out []*BuildFailure
	for _, s := range r.Steps {
		if bf, ok := s.Err.(*BuildFailure); ok && s.Status == StepFailed {
			out = append(out, bf)
		}
	}
	return out
}

// Succeeded reports whether every application was built.
func (r *Report) Succeeded() bool {
	for _, s := range r.Steps {
		if s.Status != StepSucceeded {
			return false
		}
	}
	return true
}
