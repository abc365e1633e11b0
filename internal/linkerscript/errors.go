package linkerscript

import (
	"fmt"
)

// ReadError reports that the script could not be snapshotted. Nothing has
// been mutated when it is returned.
type ReadError struct {
	Name string
	Op   string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("linker script %s: %s failed: %v", e.Name, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// PatchError reports that the base-address token could not be substituted.
// The script has been restored from its snapshot when it is returned.
type PatchError struct {
	Name  string
	Token string
	// Err is nil when the token was simply not found.
	Err error
}

func (e *PatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("linker script %s: failed to write patched script: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("linker script %s: token %q not found, nothing to patch", e.Name, e.Token)
}

func (e *PatchError) Unwrap() error { return e.Err }

// RestoreError reports that the snapshot could not be written back. The
// script on disk is corrupted; Backup names where the snapshot was kept, if
// anywhere.
type RestoreError struct {
	Name   string
	Backup string
	Err    error
	// Cause is the error of the step that ran while the script was patched,
	// if any.
	Cause error
}

func (e *RestoreError) Error() string {
	msg := fmt.Sprintf("linker script %s: RESTORE FAILED, script is left patched: %v", e.Name, e.Err)
	if e.Backup != "" {
		msg += fmt.Sprintf(" (original content preserved in %s)", e.Backup)
	}
	return msg
}

func (e *RestoreError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// StaleBackupError reports a backup left behind by an interrupted run. The
// script itself may still be patched.
type StaleBackupError struct {
	Name   string
	Backup string
}

func (e *StaleBackupError) Error() string {
	return fmt.Sprintf("linker script %s: stale backup %s found, a previous run did not finish; restore it or rerun with -recover-stale", e.Name, e.Backup)
}

// LockError reports that another run holds the script.
type LockError struct {
	Name string
	Err  error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("linker script %s is in use by another run: %v", e.Name, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }
