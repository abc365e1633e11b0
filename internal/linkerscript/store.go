package linkerscript

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/fsutil"
)

// Store is the storage of the shared script.
type Store interface {
	// Name identifies the script in errors and logs.
	Name() string
	Read() ([]byte, error)
	// Write replaces the content atomically: a failed Write leaves the
	// previous content in place.
	Write(content []byte) error
	// Backup persists a snapshot taken before a patch.
	Backup(content []byte) error
	// DiscardBackup removes the persisted snapshot after a successful restore.
	DiscardBackup() error
	// BackupLocation names where Backup persists the snapshot, or "" when it
	// only lives in memory.
	BackupLocation() string
}

// FileStore is a Store backed by a file on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a Store for the script at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return s.path }

// BackupLocation returns <path>.bak.
func (s *FileStore) BackupLocation() string { return s.path + ".bak" }

func (s *FileStore) lockPath() string { return s.path + ".lock" }

func (s *FileStore) Read() ([]byte, error) {
	return os.ReadFile(s.path)
}

func (s *FileStore) Write(content []byte) error {
	return fsutil.WriteFileAtomic(s.path, content, 0o644)
}

func (s *FileStore) Backup(content []byte) error {
	return fsutil.WriteFileAtomic(s.BackupLocation(), content, 0o644)
}

func (s *FileStore) DiscardBackup() error {
	if err := os.Remove(s.BackupLocation()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// CheckStale looks for a backup left by an interrupted run. Without restore a
// stale backup is a *StaleBackupError. With restore the backup is written
// back over the script and removed, and CheckStale reports true.
func (s *FileStore) CheckStale(ctx context.Context, restore bool) (bool, error) {
	logger := ctxlog.FromContext(ctx)

	backup, err := os.ReadFile(s.BackupLocation())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &ReadError{Name: s.path, Op: "stale backup check", Err: err}
	}
	if !restore {
		return false, &StaleBackupError{Name: s.path, Backup: s.BackupLocation()}
	}

	logger.Warn("Recovering linker script from stale backup.", "script", s.path, "backup", s.BackupLocation())
	if err := s.Write(backup); err != nil {
		return false, &RestoreError{Name: s.path, Backup: s.BackupLocation(), Err: err}
	}
	if err := s.DiscardBackup(); err != nil {
		return true, fmt.Errorf("linker script %s recovered but backup could not be removed: %w", s.path, err)
	}
	return true, nil
}
