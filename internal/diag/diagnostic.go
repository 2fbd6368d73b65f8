// Package diag defines the uniform diagnostic record handed back to the
// shell by the build driver.
package diag

import "sort"

// CompilerName identifies the toolchain in emitted diagnostics.
const CompilerName = "flux"

// Diagnostic is one normalized warning or error.
type Diagnostic struct {
	File     string // absolute path
	Line     int
	Message  string
	Severity Severity
	Compiler string
}

// New builds a Diagnostic tagged with the toolchain name.
func New(sev Severity, file string, line int, message string) Diagnostic {
	return Diagnostic{
		File:     file,
		Line:     line,
		Message:  message,
		Severity: sev,
		Compiler: CompilerName,
	}
}

// HasErrors reports whether any diagnostic has severity >= error.
func HasErrors(ds []Diagnostic) bool {
	for i := range ds {
		if ds[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by: file, line, severity (desc), message (asc)
// for a stable and deterministic output order.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		di, dj := ds[i], ds[j]
		if di.File != dj.File {
			return di.File < dj.File
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Message < dj.Message
	})
}
