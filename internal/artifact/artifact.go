// Package artifact inspects built binaries to confirm they were linked at the
// address their build step assigned.
package artifact

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/vk/stridelink/internal/layout"
)

// ErrNoLoadSegment is returned for an ELF file without PT_LOAD segments.
var ErrNoLoadSegment = errors.New("no loadable segment")

// MismatchError reports a binary linked somewhere other than expected.
type MismatchError struct {
	Path string
	Want uint64
	Got  uint64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s is linked at %s, expected %s", e.Path, layout.FormatAddress(e.Got), layout.FormatAddress(e.Want))
}

// LoadAddress returns the lowest virtual address of the PT_LOAD segments of
// the ELF file at path.
func LoadAddress(path string) (uint64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open ELF file %s: %w", path, err)
	}
	defer f.Close()

	found := false
	var lowest uint64
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if !found || prog.Vaddr < lowest {
			lowest = prog.Vaddr
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", path, ErrNoLoadSegment)
	}
	return lowest, nil
}

// VerifyLoadAddress checks that the ELF file at path starts at want.
func VerifyLoadAddress(path string, want uint64) error {
	got, err := LoadAddress(path)
	if err != nil {
		return err
	}
	if got != want {
		return &MismatchError{Path: path, Want: want, Got: got}
	}
	return nil
}
