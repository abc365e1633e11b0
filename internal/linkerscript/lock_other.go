//go:build !unix

package linkerscript

// Lock is a no-op on platforms without flock.
func (s *FileStore) Lock() (func() error, error) {
	return func() error { return nil }, nil
}
