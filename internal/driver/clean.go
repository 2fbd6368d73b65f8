package driver

import (
	"os"

	"flux/internal/manifest"
)

// Clean deletes every artifact listed in the manifest. Removal is
// best-effort; missing artifacts are not an error. The manifest file itself
// is the shell's to remove.
func Clean(manifestPath, compileDir string) {
	modules, _ := manifest.Read(manifestPath, compileDir)
	for i := range modules {
		if modules[i].Beam != "" {
			_ = os.Remove(modules[i].Beam)
		}
	}
}

// ReadManifest returns the manifest records with artifact paths expanded
// under compileDir.
func ReadManifest(manifestPath, compileDir string) ([]manifest.Module, []manifest.Source) {
	return manifest.Read(manifestPath, compileDir)
}

// ProtocolsAndImpls filters the manifest's module records down to protocol
// and implementation kinds. Beam paths come back already expanded under
// compileDir; callers must not join them again.
func ProtocolsAndImpls(manifestPath, compileDir string) []manifest.Module {
	modules, _ := manifest.Read(manifestPath, compileDir)
	out := modules[:0]
	for _, m := range modules {
		if m.Kind == manifest.KindProtocol || m.Kind == manifest.KindImpl {
			out = append(out, m)
		}
	}
	return out
}
