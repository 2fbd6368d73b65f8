package probe_test

import (
	"os"
	"path/filepath"
	"testing"

	"flux/internal/manifest"
	"flux/internal/probe"
)

func TestStat_CoversSourcesAndExternals(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.fx")
	ext := filepath.Join(dir, "schema.sql")
	if err := os.WriteFile(src, []byte("module A"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ext, []byte("create table"), 0o600); err != nil {
		t.Fatal(err)
	}

	stamps := probe.Stat([]manifest.Source{
		{Path: src, External: []string{ext}},
		{Path: filepath.Join(dir, "missing.fx"), External: []string{ext}},
	})

	st, ok := stamps[src]
	if !ok {
		t.Fatal("source not stamped")
	}
	if st.Size != uint64(len("module A")) {
		t.Fatalf("size = %d", st.Size)
	}
	if _, ok := stamps[ext]; !ok {
		t.Fatal("external not stamped")
	}
	if _, ok := stamps[filepath.Join(dir, "missing.fx")]; ok {
		t.Fatal("missing file must be absent from the map")
	}
}
