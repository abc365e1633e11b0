// Package discovery enumerates the buildable applications in a source
// directory. Identifiers are entry names with the final extension stripped,
// sorted lexicographically so that build indices are reproducible.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/stridelink/internal/ctxlog"
)

// Error reports that the application directory could not be enumerated.
type Error struct {
	Dir string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to discover applications in %s: %v", e.Dir, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Discover lists dir and returns the sorted application identifiers. An empty
// directory yields an empty slice. Subdirectories and dot-files are ignored.
func Discover(ctx context.Context, dir string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Discovering applications.", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Dir: dir, Err: err}
	}

	sources := make(map[string]string, len(entries))
	apps := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			logger.Debug("Skipping entry.", "entry", name)
			continue
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if prev, dup := sources[id]; dup {
			return nil, &Error{Dir: dir, Err: fmt.Errorf("entries %q and %q both map to application %q", prev, name, id)}
		}
		sources[id] = name
		apps = append(apps, id)
	}

	slices.Sort(apps)
	logger.Debug("Applications discovered.", "count", len(apps), "apps", apps)
	return apps, nil
}
