//go:build unix

package linkerscript

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Lock takes an exclusive, non-blocking advisory lock on <path>.lock for
// the duration of a run. The returned function releases it.
//
// The lock file is never removed: unlinking it would let a run that already
// opened the old inode and a run that creates a new one both hold a lock.
func (s *FileStore) Lock() (func() error, error) {
	f, err := os.OpenFile(s.lockPath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &LockError{Name: s.path, Err: err}
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &LockError{Name: s.path, Err: errors.New("lock held")}
		}
		return nil, &LockError{Name: s.path, Err: err}
	}

	release := func() error {
		unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		closeErr := f.Close()
		return errors.Join(unlockErr, closeErr)
	}
	return release, nil
}
