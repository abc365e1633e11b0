// Package layout assigns every application a distinct base address from a
// single formula: origin + index*stride. Applications receive evenly spaced,
// fixed-size regions in the order of their build index.
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ErrTooManyApps is returned when more applications were discovered than the
// layout allows.
var ErrTooManyApps = errors.New("too many applications for layout")

// Layout holds the run-wide address constants.
type Layout struct {
	Origin uint64
	Stride uint64
	// MaxApps caps the number of applications. Zero means unlimited.
	MaxApps int
}

// Assignment binds one application to its build index and base address.
type Assignment struct {
	App   string
	Index int
	Base  uint64
}

// OverflowError reports an address that does not fit in 64 bits.
type OverflowError struct {
	Index  int
	Origin uint64
	Stride uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("base address for index %d overflows: origin=%s stride=%s", e.Index, FormatAddress(e.Origin), FormatAddress(e.Stride))
}

// Validate checks that the layout can hand out distinct addresses.
func (l Layout) Validate() error {
	if l.Stride == 0 {
		return errors.New("stride must be greater than zero")
	}
	if l.MaxApps < 0 {
		return fmt.Errorf("max_apps must not be negative, got %d", l.MaxApps)
	}
	return nil
}

// Address returns origin + index*stride.
func (l Layout) Address(index int) (uint64, error) {
	if index < 0 {
		return 0, fmt.Errorf("build index must not be negative, got %d", index)
	}
	hi, offset := bits.Mul64(uint64(index), l.Stride)
	if hi != 0 {
		return 0, &OverflowError{Index: index, Origin: l.Origin, Stride: l.Stride}
	}
	addr, carry := bits.Add64(l.Origin, offset, 0)
	if carry != 0 {
		return 0, &OverflowError{Index: index, Origin: l.Origin, Stride: l.Stride}
	}
	return addr, nil
}

// Assign gives each application, in the given order, its index and base
// address. The whole assignment is computed up front so that an overflow or a
// count violation is reported before anything is built.
func (l Layout) Assign(apps []string) ([]Assignment, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if l.MaxApps > 0 && len(apps) > l.MaxApps {
		return nil, fmt.Errorf("%w: found %d, limit is %d", ErrTooManyApps, len(apps), l.MaxApps)
	}

	out := make([]Assignment, 0, len(apps))
	for i, app := range apps {
		base, err := l.Address(i)
		if err != nil {
			return nil, err
		}
		out = append(out, Assignment{App: app, Index: i, Base: base})
	}
	return out, nil
}

// FormatAddress renders an address as lower-case hex with a 0x prefix, the
// form a linker script carries it in.
func FormatAddress(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}

// ParseAddress parses a decimal or 0x/0o/0b prefixed unsigned integer.
// Underscore digit separators are accepted.
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty address")
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}

// End returns the first address past the region of the given index.
func (l Layout) End(index int) (uint64, error) {
	base, err := l.Address(index)
	if err != nil {
		return 0, err
	}
	if base > math.MaxUint64-l.Stride {
		return 0, &OverflowError{Index: index, Origin: l.Origin, Stride: l.Stride}
	}
	return base + l.Stride, nil
}
