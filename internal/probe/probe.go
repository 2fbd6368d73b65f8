// Package probe produces filesystem stamps for sources and their declared
// external resources.
package probe

import (
	"os"
	"time"

	"fortio.org/safecast"

	"flux/internal/manifest"
)

// Stamp is one file observation.
type Stamp struct {
	Mtime time.Time
	Size  uint64
}

// Stat returns a stamp for every source path and every external resource
// referenced by any source. Each path is stat'd at most once. Paths that
// cannot be stat'd are absent from the map; callers treat absence as stale.
func Stat(sources []manifest.Source) map[string]Stamp {
	seen := make(map[string]struct{}, len(sources))
	paths := make([]string, 0, len(sources))
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	for i := range sources {
		add(sources[i].Path)
		for _, ext := range sources[i].External {
			add(ext)
		}
	}

	stamps := make(map[string]Stamp, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		size, err := safecast.Conv[uint64](info.Size())
		if err != nil {
			continue
		}
		stamps[p] = Stamp{Mtime: info.ModTime(), Size: size}
	}
	return stamps
}
