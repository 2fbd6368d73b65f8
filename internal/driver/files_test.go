package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"flux/internal/driver"
)

func TestListSources(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"lib/b.fx",
		"lib/nested/a.fx",
		"lib/readme.md",
		"test/helper.fx",
	} {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := driver.ListSources(root, []string{"lib", "test", "missing"}, []string{".fx"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"lib/b.fx", "lib/nested/a.fx", "test/helper.fx"}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}
