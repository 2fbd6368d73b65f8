// Package manifest defines the persisted build manifest: the module and
// source records of the previous successful build plus the versioned codec
// that reads and writes them.
package manifest

// Kind classifies a module record.
type Kind uint8

const (
	// KindModule is a plain module.
	KindModule Kind = iota
	// KindProtocol is a protocol definition.
	KindProtocol
	// KindImpl is a protocol implementation; Module.Impl names the target.
	KindImpl
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindProtocol:
		return "protocol"
	case KindImpl:
		return "impl"
	}
	return "unknown"
}

// Dispatch is one function-granular remote call site (module, function, arity).
type Dispatch struct {
	Module   string
	Function string
	Arity    int
}

// Warning is one compiler warning attached to a source record.
type Warning struct {
	Line    int
	Message string
}

// Module is the manifest record for one compiled module.
type Module struct {
	// Name is the unique module identifier.
	Name string
	Kind Kind
	// Impl names the target protocol when Kind == KindImpl.
	Impl string
	// Sources lists the files that contributed code to this module,
	// most recently compiled first.
	Sources []string
	// Beam is the artifact filename. Persisted relative to the compile
	// directory; expanded to a joined path on read.
	Beam string
	// Binary holds the artifact bytes between compile completion and
	// manifest write. Never persisted.
	Binary []byte `msgpack:"-"`
}

// Source is the manifest record for one source file.
type Source struct {
	// Path is relative to the project root.
	Path string
	// Size is the file's byte size at the last successful compile.
	Size uint64
	// CompileReferences and RuntimeReferences are independent edge
	// classes; neither is required to contain the other.
	CompileReferences []string
	RuntimeReferences []string
	CompileDispatches []Dispatch
	RuntimeDispatches []Dispatch
	// External lists paths declared as external resources by modules
	// contributed from this source.
	External []string
	// Warnings accumulated from the most recent compilation of this file.
	Warnings []Warning
}

// HasExternal reports whether path is already in the source's external set.
func (s *Source) HasExternal(path string) bool {
	for _, e := range s.External {
		if e == path {
			return true
		}
	}
	return false
}

// UnionExternal merges paths into the external set. Union semantics: the
// list accumulates across module callbacks within one build and resets only
// when the source itself is recompiled.
func (s *Source) UnionExternal(paths []string) {
	for _, p := range paths {
		if !s.HasExternal(p) {
			s.External = append(s.External, p)
		}
	}
}

// PrependSource moves path to the head of the module's source list,
// removing any prior occurrence.
func (m *Module) PrependSource(path string) {
	out := make([]string, 0, len(m.Sources)+1)
	out = append(out, path)
	for _, s := range m.Sources {
		if s != path {
			out = append(out, s)
		}
	}
	m.Sources = out
}
