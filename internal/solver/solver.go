// Package solver computes the transitive set of stale modules and changed
// sources from a seed set, using the module reference graph recorded in the
// manifest.
package solver

import "flux/internal/manifest"

// PurgeFunc removes a dropped module's artifact. Best-effort: failures are
// the callee's problem and never stop the solve.
type PurgeFunc func(manifest.Module)

// Result is the solver's output: the module records that survive without a
// rebuild, plus the final set of source paths requiring recompilation.
type Result struct {
	Modules []manifest.Module
	Changed map[string]struct{}
	Stale   map[string]struct{}
}

// Run iterates the module set to a fixed point.
//
// A module is dirty when one of its sources is in changed or one of its
// compile-time references is in stale: its artifact is purged, its sources
// join changed, its name joins stale, and its record drops. A module whose
// only link to stale is a runtime reference joins stale but keeps its
// record: runtime staleness propagates to consumers without forcing a
// rebuild of the module itself. Cycles are fine, the iteration is monotone
// over finite sets.
func Run(modules []manifest.Module, sources []manifest.Source, changed, stale map[string]struct{}, purge PurgeFunc) Result {
	srcIndex := make(map[string]*manifest.Source, len(sources))
	for i := range sources {
		srcIndex[sources[i].Path] = &sources[i]
	}

	changedSet := make(map[string]struct{}, len(changed))
	for p := range changed {
		changedSet[p] = struct{}{}
	}
	staleSet := make(map[string]struct{}, len(stale))
	for m := range stale {
		staleSet[m] = struct{}{}
	}

	pending := make([]manifest.Module, len(modules))
	copy(pending, modules)

	for {
		grew := false
		kept := pending[:0]
		for _, m := range pending {
			compileRefs, runtimeRefs := moduleRefs(&m, srcIndex)

			dirty := anySourceIn(m.Sources, changedSet) || anyIn(compileRefs, staleSet)
			if dirty {
				if purge != nil {
					purge(m)
				}
				for _, s := range m.Sources {
					if _, ok := changedSet[s]; !ok {
						changedSet[s] = struct{}{}
						grew = true
					}
				}
				if _, ok := staleSet[m.Name]; !ok {
					staleSet[m.Name] = struct{}{}
					grew = true
				}
				continue
			}

			if _, already := staleSet[m.Name]; !already && anyIn(runtimeRefs, staleSet) {
				staleSet[m.Name] = struct{}{}
				grew = true
			}
			kept = append(kept, m)
		}
		pending = kept
		if !grew {
			return Result{Modules: pending, Changed: changedSet, Stale: staleSet}
		}
	}
}

// moduleRefs unions the reference lists of every source contributing to m.
func moduleRefs(m *manifest.Module, srcIndex map[string]*manifest.Source) (compile, runtime []string) {
	for _, s := range m.Sources {
		src, ok := srcIndex[s]
		if !ok {
			continue
		}
		compile = append(compile, src.CompileReferences...)
		runtime = append(runtime, src.RuntimeReferences...)
	}
	return compile, runtime
}

func anySourceIn(sources []string, set map[string]struct{}) bool {
	for _, s := range sources {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

func anyIn(names []string, set map[string]struct{}) bool {
	for _, n := range names {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
