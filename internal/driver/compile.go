// Package driver is the incremental build core: it decides which sources
// must recompile, drives the parallel compiler over them, and keeps the
// persisted manifest consistent.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"flux/internal/depscan"
	"flux/internal/diag"
	"flux/internal/manifest"
	"flux/internal/observ"
	"flux/internal/probe"
	"flux/internal/solver"
)

// DefaultLongCompilationThreshold is applied when options leave the
// threshold unset.
const DefaultLongCompilationThreshold = 10 * time.Second

// Status is the overall build outcome.
type Status int

const (
	// StatusOk means something was compiled or the manifest was rewritten.
	StatusOk Status = iota
	// StatusNoop means nothing needed to be done.
	StatusNoop
	// StatusError means the compiler reported errors; the previous
	// manifest remains authoritative.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusNoop:
		return "noop"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Options configures one orchestrator run.
type Options struct {
	// Manifest is the manifest file path.
	Manifest string
	// Dest is the compile directory artifacts live under.
	Dest string
	// Root is the project root; source paths are recorded relative to it.
	Root string
	// Roots are the source directories to enumerate, relative to Root.
	Roots []string
	// Extensions select source files, e.g. ".fx".
	Extensions []string

	// Force recompiles every source.
	Force bool
	// AllWarnings re-emits stored warnings from unchanged sources.
	AllWarnings bool
	// LongCompilationThreshold for slow-file notifications; defaults to
	// DefaultLongCompilationThreshold.
	LongCompilationThreshold time.Duration
	// Extra front-end options, forwarded untouched.
	Extra map[string]string

	// Deps are the resolved upstream dependencies to scan for staleness.
	Deps []depscan.Dep

	Compiler Compiler
	Tracker  ReferenceTracker
	Info     ModuleInfo

	// Progress receives per-file events when set.
	Progress ProgressSink
	// Timer records phase timings when set.
	Timer *observ.Timer
}

// Compile is the single public build entry point. It returns the build
// status plus normalized diagnostics; err is reserved for I/O failures that
// would leave state inconsistent (compiler errors come back as diagnostics
// with StatusError, not as err).
func Compile(ctx context.Context, opts Options) (Status, []diag.Diagnostic, error) {
	if opts.LongCompilationThreshold <= 0 {
		opts.LongCompilationThreshold = DefaultLongCompilationThreshold
	}

	// Captured before any file reads so writes racing this build are
	// caught next time.
	timestamp := time.Now()

	readIdx := opts.Timer.Begin("manifest_read")
	files, err := ListSources(opts.Root, opts.Roots, opts.Extensions)
	if err != nil {
		return StatusError, nil, err
	}
	allModules, allSources := manifest.Read(opts.Manifest, opts.Dest)
	manifestMtime := manifest.Mtime(opts.Manifest)
	opts.Timer.End(readIdx, "")

	currentSet := make(map[string]struct{}, len(files))
	for _, f := range files {
		currentSet[f] = struct{}{}
	}
	prevByPath := make(map[string]*manifest.Source, len(allSources))
	for i := range allSources {
		prevByPath[allSources[i].Path] = &allSources[i]
	}
	removed := make(map[string]struct{})
	for path := range prevByPath {
		if _, ok := currentSet[path]; !ok {
			removed[path] = struct{}{}
		}
	}

	probeIdx := opts.Timer.Begin("probe")
	abs := func(rel string) string {
		return filepath.Join(opts.Root, filepath.FromSlash(rel))
	}
	probeIn := make([]manifest.Source, 0, len(files))
	for _, f := range files {
		ps := manifest.Source{Path: abs(f)}
		if prev, ok := prevByPath[f]; ok {
			for _, ext := range prev.External {
				ps.External = append(ps.External, abs(ext))
			}
		}
		probeIn = append(probeIn, ps)
	}
	stamps := probe.Stat(probeIn)

	changed := make(map[string]struct{})
	if opts.Force {
		for _, f := range files {
			changed[f] = struct{}{}
		}
	} else {
		for _, f := range files {
			if isChanged(f, prevByPath[f], stamps, abs, manifestMtime) {
				changed[f] = struct{}{}
			}
		}
	}
	opts.Timer.End(probeIdx, "")

	solveIdx := opts.Timer.Begin("solve")
	staleSeed := depscan.StaleModules(opts.Deps, filepath.Base(opts.Manifest), manifestMtime)

	seedChanged := make(map[string]struct{}, len(changed)+len(removed))
	for p := range changed {
		seedChanged[p] = struct{}{}
	}
	for p := range removed {
		seedChanged[p] = struct{}{}
	}

	res := solver.Run(allModules, allSources, seedChanged, staleSeed, purgeArtifact)

	staleToCompile := make([]string, 0, len(res.Changed))
	for p := range res.Changed {
		if _, gone := removed[p]; !gone {
			staleToCompile = append(staleToCompile, p)
		}
	}
	sort.Strings(staleToCompile)

	// Surviving source records plus empty skeletons for everything the
	// coordinator is about to refill.
	sources := make([]manifest.Source, 0, len(allSources))
	for i := range allSources {
		s := allSources[i]
		if _, gone := removed[s.Path]; gone {
			continue
		}
		if _, dirty := res.Changed[s.Path]; dirty {
			continue
		}
		sources = append(sources, s)
	}
	keptWarnings := warningDiagnostics(sources, opts.Root, opts.AllWarnings)
	for _, f := range staleToCompile {
		skeleton := manifest.Source{Path: f}
		if st, ok := stamps[abs(f)]; ok {
			skeleton.Size = st.Size
		}
		sources = append(sources, skeleton)
	}
	opts.Timer.End(solveIdx, "")

	if len(staleToCompile) > 0 {
		return compileStale(ctx, &opts, res.Modules, sources, staleToCompile, keptWarnings, timestamp)
	}

	if len(removed) > 0 {
		writeIdx := opts.Timer.Begin("manifest_write")
		sortModules(res.Modules)
		sortSources(sources)
		if err := manifest.Write(opts.Manifest, res.Modules, sources, opts.Dest, timestamp); err != nil {
			return StatusError, nil, err
		}
		opts.Timer.End(writeIdx, "")
		return StatusOk, keptWarnings, nil
	}

	return StatusNoop, keptWarnings, nil
}

// compileStale drives the coordinator over the stale file list and, on
// success, writes the assembled manifest.
func compileStale(ctx context.Context, opts *Options, modules []manifest.Module, sources []manifest.Source, files []string, keptWarnings []diag.Diagnostic, timestamp time.Time) (Status, []diag.Diagnostic, error) {
	if opts.Progress != nil {
		for _, f := range files {
			opts.Progress.OnEvent(Event{File: f, Status: EventQueued})
		}
	}

	compileIdx := opts.Timer.Begin("compile")
	coord := newCoordinator(modules, sources, opts.Tracker, opts.Info, opts.Root)
	cres := coord.run(ctx, opts.Compiler, files, CompileOptions{
		Dest:                     opts.Dest,
		LongCompilationThreshold: opts.LongCompilationThreshold,
		Extra:                    opts.Extra,
		EachLongCompilation: func(source string) {
			if opts.Progress != nil {
				opts.Progress.OnEvent(Event{File: source, Status: EventSlow})
			}
		},
	})
	opts.Timer.End(compileIdx, "")

	diags := keptWarnings
	for _, w := range cres.Warnings {
		diags = append(diags, diag.New(diag.SevWarning, w.File, w.Line, w.Message))
	}
	if !cres.Ok {
		// In-memory updates are discarded; the previous manifest stays
		// authoritative.
		for _, e := range cres.Errors {
			diags = append(diags, diag.New(diag.SevError, e.File, e.Line, e.Message))
		}
		diag.Sort(diags)
		return StatusError, diags, nil
	}

	writeIdx := opts.Timer.Begin("manifest_write")
	newModules, newSources := coord.snapshot()
	if err := manifest.Write(opts.Manifest, newModules, newSources, opts.Dest, timestamp); err != nil {
		return StatusError, diags, err
	}
	opts.Timer.End(writeIdx, "")

	diag.Sort(diags)
	return StatusOk, diags, nil
}

// isChanged implements the per-source staleness checks: unknown files,
// stat failures, size drift, and source or external mtimes newer than the
// manifest all force a recompile.
func isChanged(path string, prev *manifest.Source, stamps map[string]probe.Stamp, abs func(string) string, manifestMtime time.Time) bool {
	if prev == nil {
		return true
	}
	st, ok := stamps[abs(path)]
	if !ok {
		return true
	}
	if st.Size != prev.Size || st.Mtime.After(manifestMtime) {
		return true
	}
	for _, ext := range prev.External {
		est, ok := stamps[abs(ext)]
		if !ok || est.Mtime.After(manifestMtime) {
			return true
		}
	}
	return false
}

// purgeArtifact removes a dropped module's artifact. Best-effort: the file
// is rewritten on the next successful compile anyway.
func purgeArtifact(m manifest.Module) {
	if m.Beam != "" {
		_ = os.Remove(m.Beam)
	}
}

// warningDiagnostics re-emits stored warnings from surviving sources when
// the caller asked for all warnings.
func warningDiagnostics(sources []manifest.Source, root string, all bool) []diag.Diagnostic {
	if !all {
		return nil
	}
	var out []diag.Diagnostic
	for i := range sources {
		s := &sources[i]
		file := filepath.Join(root, filepath.FromSlash(s.Path))
		for _, w := range s.Warnings {
			out = append(out, diag.New(diag.SevWarning, file, w.Line, w.Message))
		}
	}
	return out
}
