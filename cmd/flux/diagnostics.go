package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"flux/internal/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// printDiagnostics renders normalized diagnostics, one per line:
// <path>:<line>: <severity>: <message>
func printDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		sev := d.Severity.String()
		switch d.Severity {
		case diag.SevError:
			sev = errorColor.Sprint(sev)
		case diag.SevWarning:
			sev = warningColor.Sprint(sev)
		default:
			sev = infoColor.Sprint(sev)
		}
		fmt.Fprintf(w, "%s:%d: %s: %s\n", displayPath(d.File), d.Line, sev, d.Message)
	}
}

func displayPath(path string) string {
	cwd, err := filepath.Abs(".")
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || len(rel) >= len(path) {
		return path
	}
	return filepath.ToSlash(rel)
}
