package linkerscript

import (
	"sync"
)

// MemStore is an in-memory Store. The hooks let tests fail individual
// operations.
type MemStore struct {
	mu        sync.Mutex
	content   []byte
	backup    []byte
	hasBackup bool
	writes    int

	// ReadErr, when set, is returned by every Read.
	ReadErr error
	// BackupErr, when set, is returned by every Backup.
	BackupErr error
	// WriteErr, when set, is called with the 1-based number of the write and
	// may fail it. A failed write leaves the content untouched.
	WriteErr func(n int) error
}

// NewMemStore returns a MemStore holding content.
func NewMemStore(content string) *MemStore {
	return &MemStore{content: []byte(content)}
}

func (s *MemStore) Name() string { return "memory" }

func (s *MemStore) BackupLocation() string { return "" }

func (s *MemStore) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return append([]byte(nil), s.content...), nil
}

func (s *MemStore) Write(content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.WriteErr != nil {
		if err := s.WriteErr(s.writes); err != nil {
			return err
		}
	}
	s.content = append([]byte(nil), content...)
	return nil
}

func (s *MemStore) Backup(content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BackupErr != nil {
		return s.BackupErr
	}
	s.backup = append([]byte(nil), content...)
	s.hasBackup = true
	return nil
}

func (s *MemStore) DiscardBackup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backup = nil
	s.hasBackup = false
	return nil
}

// Content returns the current script content.
func (s *MemStore) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.content)
}

// HasBackup reports whether a snapshot is currently persisted.
func (s *MemStore) HasBackup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasBackup
}

// Writes returns how many writes were attempted.
func (s *MemStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
