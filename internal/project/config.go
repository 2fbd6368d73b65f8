// Package project locates and decodes the flux.toml project manifest.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"flux/internal/depscan"
)

// Config is the decoded flux.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
	Deps    []DepConfig   `toml:"deps"`
}

// PackageConfig names the project.
type PackageConfig struct {
	Name string `toml:"name"`
}

// BuildConfig selects source roots and the compile directory.
type BuildConfig struct {
	Src        []string `toml:"src"`
	Dest       string   `toml:"dest"`
	Extensions []string `toml:"extensions"`
}

// DepConfig is one local upstream dependency entry.
type DepConfig struct {
	App       string `toml:"app"`
	Path      string `toml:"path"`
	Fetchable bool   `toml:"fetchable"`
}

// Project is a located and decoded flux.toml.
type Project struct {
	Path   string
	Root   string
	Config Config
}

// Load walks up from startDir, decodes flux.toml, and applies defaults.
func Load(startDir string) (*Project, bool, error) {
	manifestPath, ok, err := FindFluxToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := decode(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Project{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func decode(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	for i, dep := range cfg.Deps {
		if strings.TrimSpace(dep.App) == "" || strings.TrimSpace(dep.Path) == "" {
			return Config{}, fmt.Errorf("%s: [[deps]] entry %d needs app and path", path, i)
		}
	}
	if len(cfg.Build.Src) == 0 {
		cfg.Build.Src = []string{"lib"}
	}
	if cfg.Build.Dest == "" {
		cfg.Build.Dest = "_build"
	}
	if len(cfg.Build.Extensions) == 0 {
		cfg.Build.Extensions = []string{".fx"}
	}
	return cfg, nil
}

// Dest returns the compile directory, absolute under the project root.
func (p *Project) Dest() string {
	return filepath.Join(p.Root, filepath.FromSlash(p.Config.Build.Dest))
}

// BuildManifest returns the build manifest path under the compile dir.
func (p *Project) BuildManifest() string {
	return filepath.Join(p.Dest(), CompileManifest)
}

// ScanDeps converts the config's dependency entries into scanner inputs.
// Dependency paths resolve relative to the project root; artifacts are
// expected under each dependency's own compile dir.
func (p *Project) ScanDeps() []depscan.Dep {
	if len(p.Config.Deps) == 0 {
		return nil
	}
	out := make([]depscan.Dep, 0, len(p.Config.Deps))
	for _, d := range p.Config.Deps {
		depRoot := d.Path
		if !filepath.IsAbs(depRoot) {
			depRoot = filepath.Join(p.Root, filepath.FromSlash(d.Path))
		}
		buildPath := filepath.Join(depRoot, "_build")
		out = append(out, depscan.Dep{
			App:       d.App,
			BuildPath: buildPath,
			LoadPaths: []string{buildPath},
			Fetchable: d.Fetchable,
		})
	}
	return out
}
