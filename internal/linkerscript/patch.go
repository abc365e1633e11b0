package linkerscript

import (
	"bytes"
	"context"

	"github.com/vk/stridelink/internal/ctxlog"
)

// Patch runs fn while the script has every occurrence of token replaced by
// replacement.
//
// The script is snapshotted before it is touched and, once the patched content
// has been written, the snapshot is written back on every exit path: after fn
// succeeds, after fn fails, and when fn panics. A patch that never landed
// leaves nothing to restore. The error of fn is returned as is. A failed
// restore is returned as a *RestoreError carrying fn's error as its Cause and
// takes priority over it.
func Patch(ctx context.Context, store Store, token, replacement string, fn func(context.Context) error) (err error) {
	logger := ctxlog.FromContext(ctx).With("script", store.Name())

	original, rerr := store.Read()
	if rerr != nil {
		return &ReadError{Name: store.Name(), Op: "read", Err: rerr}
	}
	if berr := store.Backup(original); berr != nil {
		return &ReadError{Name: store.Name(), Op: "backup", Err: berr}
	}
	logger.Debug("Linker script snapshotted.", "bytes", len(original), "backup", store.BackupLocation())

	patched := false
	defer func() {
		if !patched {
			// Write is atomic, so the script still holds the snapshot.
			if derr := store.DiscardBackup(); derr != nil {
				logger.Warn("Failed to remove linker script backup.", "error", derr, "backup", store.BackupLocation())
			}
			return
		}
		if werr := store.Write(original); werr != nil {
			logger.Error("Failed to restore linker script.", "error", werr, "backup", store.BackupLocation())
			err = &RestoreError{Name: store.Name(), Backup: store.BackupLocation(), Err: werr, Cause: err}
			return
		}
		if derr := store.DiscardBackup(); derr != nil {
			// The script itself is intact, only the mirror is left behind.
			logger.Warn("Failed to remove linker script backup.", "error", derr, "backup", store.BackupLocation())
		}
		logger.Debug("Linker script restored.")
	}()

	tok := []byte(token)
	occurrences := 0
	if len(tok) > 0 {
		occurrences = bytes.Count(original, tok)
	}
	if occurrences == 0 {
		return &PatchError{Name: store.Name(), Token: token}
	}

	if werr := store.Write(bytes.ReplaceAll(original, tok, []byte(replacement))); werr != nil {
		return &PatchError{Name: store.Name(), Token: token, Err: werr}
	}
	patched = true
	logger.Debug("Linker script patched.", "token", token, "replacement", replacement, "occurrences", occurrences)

	return fn(ctx)
}
