package driver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"flux/internal/manifest"
)

// ListSources returns every source file under the given roots (relative to
// the project root) matching one of the extensions. Paths come back
// root-relative, slash-separated, sorted, and deduplicated.
func ListSources(root string, roots, extensions []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, r := range roots {
		dir := filepath.Join(root, filepath.FromSlash(r))
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !matchesExtension(path, extensions) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if _, dup := seen[rel]; !dup {
				seen[rel] = struct{}{}
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	// Deterministic order.
	sort.Strings(files)
	return files, nil
}

func matchesExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func sortModules(modules []manifest.Module) {
	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
}

func sortSources(sources []manifest.Source) {
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
}
