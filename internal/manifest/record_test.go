package manifest_test

import (
	"testing"

	"flux/internal/manifest"
)

func TestModule_PrependSource(t *testing.T) {
	m := manifest.Module{Sources: []string{"a.fx", "b.fx"}}
	m.PrependSource("b.fx")
	if len(m.Sources) != 2 || m.Sources[0] != "b.fx" || m.Sources[1] != "a.fx" {
		t.Fatalf("unexpected sources: %v", m.Sources)
	}
	m.PrependSource("c.fx")
	if len(m.Sources) != 3 || m.Sources[0] != "c.fx" {
		t.Fatalf("unexpected sources: %v", m.Sources)
	}
}

func TestSource_UnionExternal(t *testing.T) {
	s := manifest.Source{External: []string{"priv/a.sql"}}
	s.UnionExternal([]string{"priv/a.sql", "priv/b.sql"})
	s.UnionExternal([]string{"priv/b.sql"})
	if len(s.External) != 2 {
		t.Fatalf("union must be idempotent, got %v", s.External)
	}
}
