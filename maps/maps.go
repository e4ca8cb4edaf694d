// Package maps implements map resolution (spec §1's find_map collaborator):
// translating a configured map name into a filesystem path the Process
// Adapter's engine can load.
package maps

import (
	"os"
	"path/filepath"
)

// Resolver resolves map names against one or more search directories, the
// proxy's equivalent of the original's map-folder lookup.
type Resolver struct {
	dirs []string
}

// NewResolver builds a Resolver searching dirs in order.
func NewResolver(dirs ...string) *Resolver {
	return &Resolver{dirs: dirs}
}

// FindMap implements config.MapResolver: it looks for "<name>.SC2Map" in
// each configured directory in turn and returns the first match.
func (r *Resolver) FindMap(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, dir := range r.dirs {
		candidate := filepath.Join(dir, name+".SC2Map")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
