package driver

import (
	"context"
	"time"

	"flux/internal/manifest"
)

// Note is one raw compiler message: absolute file, line, message.
type Note struct {
	File    string
	Line    int
	Message string
}

// Result is the outcome of one parallel compiler run.
type Result struct {
	Ok       bool
	Errors   []Note
	Warnings []Note
}

// CompileOptions configures one parallel compiler invocation.
type CompileOptions struct {
	// Dest is the compile directory artifacts are written under.
	Dest string
	// EachModule fires when compilation of a module completes. Callbacks
	// may arrive from multiple workers in arbitrary order.
	EachModule func(source, module string, binary []byte)
	// EachLongCompilation fires once a file has been compiling for longer
	// than LongCompilationThreshold.
	EachLongCompilation func(source string)
	// LongCompilationThreshold for EachLongCompilation.
	LongCompilationThreshold time.Duration
	// Extra options are forwarded to the front-end untouched.
	Extra map[string]string
}

// Compiler is the external parallel compiler the coordinator drives.
type Compiler interface {
	Compile(ctx context.Context, files []string, opts CompileOptions) Result
}

// ReferenceTracker reports the remote references of a freshly compiled
// module, split into the compile-time and runtime edge classes.
type ReferenceTracker interface {
	References(module string) (compile, runtime []string)
	Dispatches(module string) (compile, runtime []manifest.Dispatch)
}

// ModuleInfo retrieves the attributes of a compiled module.
type ModuleInfo interface {
	// Protocol reports whether the module defines a protocol.
	Protocol(module string) bool
	// ProtocolImpl returns the protocol the module implements, if any.
	ProtocolImpl(module string) (string, bool)
	// ExternalResources returns the module's declared external resource
	// paths.
	ExternalResources(module string) []string
}

// EventStatus is a progress state for one source file.
type EventStatus uint8

const (
	// EventQueued indicates the file is waiting for a worker.
	EventQueued EventStatus = iota
	// EventCompiling indicates a worker picked the file up.
	EventCompiling
	// EventDone indicates the file compiled cleanly.
	EventDone
	// EventFailed indicates the file failed to compile.
	EventFailed
	// EventSlow indicates the file exceeded the long-compilation
	// threshold and is still compiling.
	EventSlow
)

func (s EventStatus) String() string {
	switch s {
	case EventQueued:
		return "queued"
	case EventCompiling:
		return "compiling"
	case EventDone:
		return "done"
	case EventFailed:
		return "error"
	case EventSlow:
		return "slow"
	}
	return "unknown"
}

// Event reports per-file compile progress.
type Event struct {
	File   string
	Status EventStatus
}

// ProgressSink consumes progress events. Implementations must tolerate
// events from multiple goroutines.
type ProgressSink interface {
	OnEvent(Event)
}
