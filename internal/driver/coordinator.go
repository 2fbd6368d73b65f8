package driver

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"flux/internal/manifest"
)

// internalPrefix marks toolchain-internal module ids; references to them
// never show up in manifest records.
const internalPrefix = "flux_"

// coordinator owns the working (modules, sources) pair while the parallel
// compiler runs. Module callbacks arrive from arbitrary workers; every
// mutation goes through the mutex, no reader looks at the pair until the
// compiler has fully terminated.
type coordinator struct {
	mu      sync.Mutex
	modules map[string]*manifest.Module
	sources map[string]*manifest.Source

	tracker ReferenceTracker
	info    ModuleInfo
	root    string
}

func newCoordinator(modules []manifest.Module, sources []manifest.Source, tracker ReferenceTracker, info ModuleInfo, root string) *coordinator {
	c := &coordinator{
		modules: make(map[string]*manifest.Module, len(modules)),
		sources: make(map[string]*manifest.Source, len(sources)),
		tracker: tracker,
		info:    info,
		root:    root,
	}
	for i := range modules {
		m := modules[i]
		c.modules[m.Name] = &m
	}
	for i := range sources {
		s := sources[i]
		c.sources[s.Path] = &s
	}
	return c
}

// run drives the compiler over the stale file list and applies module
// callbacks. On Ok it attaches warnings to their source records and the
// working pair becomes the next manifest; on error the pair is abandoned.
func (c *coordinator) run(ctx context.Context, compiler Compiler, files []string, opts CompileOptions) Result {
	opts.EachModule = c.onModule
	res := compiler.Compile(ctx, files, opts)
	if res.Ok {
		c.attachWarnings(res.Warnings)
	}
	return res
}

// onModule fires when compilation of one module completes.
func (c *coordinator) onModule(source, module string, binary []byte) {
	kind, impl := c.moduleKind(module)
	compileRefs, runtimeRefs := c.tracker.References(module)
	compileRefs = filterRefs(compileRefs, module)
	runtimeRefs = filterRefs(runtimeRefs, module)
	compileDisp, runtimeDisp := c.tracker.Dispatches(module)
	compileDisp = filterDispatches(compileDisp, module)
	runtimeDisp = filterDispatches(runtimeDisp, module)
	external := c.relativeExternals(c.info.ExternalResources(module))

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.modules[module]
	if !ok {
		m = &manifest.Module{Name: module}
		c.modules[module] = m
	}
	m.Kind = kind
	m.Impl = impl
	m.PrependSource(source)
	m.Binary = binary
	m.Beam = ""

	s, ok := c.sources[source]
	if !ok {
		s = &manifest.Source{Path: source}
		c.sources[source] = s
	}
	s.CompileReferences = unionNames(s.CompileReferences, compileRefs)
	s.RuntimeReferences = unionNames(s.RuntimeReferences, runtimeRefs)
	s.CompileDispatches = unionDispatches(s.CompileDispatches, compileDisp)
	s.RuntimeDispatches = unionDispatches(s.RuntimeDispatches, runtimeDisp)
	s.UnionExternal(external)
	s.Warnings = nil
}

func (c *coordinator) moduleKind(module string) (manifest.Kind, string) {
	if c.info.Protocol(module) {
		return manifest.KindProtocol, ""
	}
	if target, ok := c.info.ProtocolImpl(module); ok {
		return manifest.KindImpl, target
	}
	return manifest.KindModule, ""
}

// relativeExternals normalizes declared external-resource paths relative to
// the project root. Paths outside the root are kept as given.
func (c *coordinator) relativeExternals(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if c.root != "" && filepath.IsAbs(p) {
			if rel, err := filepath.Rel(c.root, p); err == nil && !strings.HasPrefix(rel, "..") {
				p = filepath.ToSlash(rel)
			}
		}
		out = append(out, p)
	}
	return out
}

// attachWarnings groups compiler warnings by absolute path and stores them
// on the owning source records.
func (c *coordinator) attachWarnings(warnings []Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range warnings {
		for _, s := range c.sources {
			if filepath.Join(c.root, s.Path) != w.File {
				continue
			}
			s.Warnings = append(s.Warnings, manifest.Warning{Line: w.Line, Message: w.Message})
			break
		}
	}
}

// snapshot returns the assembled records, modules sorted by name and
// sources by path for a deterministic manifest.
func (c *coordinator) snapshot() ([]manifest.Module, []manifest.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	modules := make([]manifest.Module, 0, len(c.modules))
	for _, m := range c.modules {
		modules = append(modules, *m)
	}
	sources := make([]manifest.Source, 0, len(c.sources))
	for _, s := range c.sources {
		sources = append(sources, *s)
	}
	sortModules(modules)
	sortSources(sources)
	return modules, sources
}

func filterRefs(refs []string, self string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == self || strings.HasPrefix(r, internalPrefix) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterDispatches(ds []manifest.Dispatch, self string) []manifest.Dispatch {
	out := make([]manifest.Dispatch, 0, len(ds))
	for _, d := range ds {
		if d.Module == self || strings.HasPrefix(d.Module, internalPrefix) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func unionNames(have, add []string) []string {
	seen := make(map[string]struct{}, len(have))
	for _, n := range have {
		seen[n] = struct{}{}
	}
	for _, n := range add {
		if _, dup := seen[n]; !dup {
			seen[n] = struct{}{}
			have = append(have, n)
		}
	}
	return have
}

func unionDispatches(have, add []manifest.Dispatch) []manifest.Dispatch {
	seen := make(map[manifest.Dispatch]struct{}, len(have))
	for _, d := range have {
		seen[d] = struct{}{}
	}
	for _, d := range add {
		if _, dup := seen[d]; !dup {
			seen[d] = struct{}{}
			have = append(have, d)
		}
	}
	return have
}
