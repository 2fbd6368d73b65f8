package manifest_test

import (
	"compress/zlib"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"flux/internal/manifest"
)

func TestCodec_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile.flux")

	modules := []manifest.Module{{
		Name:    "App.Repo",
		Kind:    manifest.KindModule,
		Sources: []string{"lib/repo.fx"},
		Binary:  []byte("bytecode"),
	}}
	sources := []manifest.Source{{
		Path:              "lib/repo.fx",
		Size:              42,
		CompileReferences: []string{"App.Config"},
		RuntimeReferences: []string{"App.Logger"},
		External:          []string{"priv/schema.sql"},
		Warnings:          []manifest.Warning{{Line: 3, Message: "unused variable"}},
	}}

	stamp := time.Now().Add(-time.Minute).Truncate(time.Second)
	if err := manifest.Write(path, modules, sources, dir, stamp); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	beam := filepath.Join(dir, "App.Repo.beam")
	data, err := os.ReadFile(beam)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != "bytecode" {
		t.Fatalf("artifact content mismatch: %q", data)
	}
	info, err := os.Stat(beam)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Fatalf("artifact mtime = %v, want %v", info.ModTime(), stamp)
	}
	if !manifest.Mtime(path).Equal(stamp) {
		t.Fatalf("manifest mtime = %v, want %v", manifest.Mtime(path), stamp)
	}

	gotModules, gotSources := manifest.Read(path, dir)
	if len(gotModules) != 1 || len(gotSources) != 1 {
		t.Fatalf("read returned %d modules, %d sources", len(gotModules), len(gotSources))
	}
	if gotModules[0].Beam != beam {
		t.Fatalf("beam path not expanded: %q", gotModules[0].Beam)
	}
	if len(gotModules[0].Binary) != 0 {
		t.Fatal("binary must not be persisted")
	}
	src := gotSources[0]
	if src.Size != 42 || len(src.CompileReferences) != 1 || src.Warnings[0].Line != 3 {
		t.Fatalf("source record mismatch: %+v", src)
	}
}

func TestCodec_EmptyStateDeletesManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile.flux")
	if err := manifest.Write(path, []manifest.Module{{Name: "A", Binary: []byte("x")}}, []manifest.Source{{Path: "a.fx"}}, dir, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := manifest.Write(path, nil, nil, dir, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("manifest should be deleted for empty state")
	}
	// Deleting an already-missing manifest is fine.
	if err := manifest.Write(path, nil, nil, dir, time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestCodec_CorruptManifestReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile.flux")
	if err := os.WriteFile(path, []byte("not a manifest"), 0o600); err != nil {
		t.Fatal(err)
	}
	modules, sources := manifest.Read(path, dir)
	if modules != nil || sources != nil {
		t.Fatal("corrupt manifest must decode to empty state")
	}
}

func TestCodec_MissingManifestReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	modules, sources := manifest.Read(filepath.Join(dir, "compile.flux"), dir)
	if modules != nil || sources != nil {
		t.Fatal("missing manifest must decode to empty state")
	}
}

func TestCodec_OldVersionCleansArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile.flux")
	beam := filepath.Join(dir, "Old.Mod.beam")
	if err := os.WriteFile(beam, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	writeEnvelope(t, path, "v1", []manifest.Module{{Name: "Old.Mod", Beam: "Old.Mod.beam"}})

	modules, sources := manifest.Read(path, dir)
	if modules != nil || sources != nil {
		t.Fatal("old version must decode to empty state")
	}
	if _, err := os.Stat(beam); !os.IsNotExist(err) {
		t.Fatal("old-version artifact must be deleted")
	}
}

func TestCodec_UnknownVersionReadsEmptyWithoutCleanup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile.flux")
	beam := filepath.Join(dir, "Kept.beam")
	if err := os.WriteFile(beam, []byte("keep"), 0o600); err != nil {
		t.Fatal(err)
	}
	writeEnvelope(t, path, "v99", []manifest.Module{{Name: "Kept", Beam: "Kept.beam"}})

	modules, sources := manifest.Read(path, dir)
	if modules != nil || sources != nil {
		t.Fatal("unknown version must decode to empty state")
	}
	if _, err := os.Stat(beam); err != nil {
		t.Fatal("unknown-version artifacts must be left alone")
	}
}

// writeEnvelope emits a manifest with an arbitrary version tag, bypassing
// Write's fixed current-version tag.
func writeEnvelope(t *testing.T, path, version string, modules []manifest.Module) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zlib.NewWriter(f)
	payload := struct {
		Version string
		Modules []manifest.Module
		Sources []manifest.Source
	}{Version: version, Modules: modules}
	if err := msgpack.NewEncoder(zw).Encode(&payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCodec_LockRefreshRunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile.flux")
	called := false
	manifest.LockRefresh = func() { called = true }
	defer func() { manifest.LockRefresh = nil }()

	if err := manifest.Write(path, []manifest.Module{{Name: "A", Binary: []byte("x")}}, nil, dir, time.Now()); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("lock refresh hook not invoked")
	}
}
