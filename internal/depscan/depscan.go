// Package depscan detects local upstream dependencies whose artifacts were
// rebuilt after the current project's manifest. Modules found here seed the
// staleness solver.
package depscan

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dep describes one resolved upstream dependency. The resolver that
// produces these lives outside the build core.
type Dep struct {
	// App is the dependency's name.
	App string
	// BuildPath is the directory holding the dependency's own manifest.
	BuildPath string
	// LoadPaths are the directories holding the dependency's artifacts.
	LoadPaths []string
	// Fetchable dependencies are rebuilt by the package manager, never by
	// us; they are skipped here.
	Fetchable bool
}

// StaleModules returns the module ids of local dependencies whose artifacts
// are newer than since (the current manifest's mtime). A dependency is only
// inspected when its own manifest (manifestName under BuildPath) is newer
// than since.
func StaleModules(deps []Dep, manifestName string, since time.Time) map[string]struct{} {
	stale := make(map[string]struct{})
	for _, dep := range deps {
		if dep.Fetchable {
			continue
		}
		info, err := os.Stat(filepath.Join(dep.BuildPath, manifestName))
		if err != nil || !info.ModTime().After(since) {
			continue
		}
		for _, loadPath := range dep.LoadPaths {
			beams, err := filepath.Glob(filepath.Join(loadPath, "*.beam"))
			if err != nil {
				continue
			}
			for _, beam := range beams {
				info, err := os.Stat(beam)
				if err != nil || !info.ModTime().After(since) {
					continue
				}
				name := strings.TrimSuffix(filepath.Base(beam), ".beam")
				stale[name] = struct{}{}
			}
		}
	}
	return stale
}
