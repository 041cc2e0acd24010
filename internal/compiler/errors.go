package compiler

import "strings"

// SourceFailure names one file's parse/compile failure.
type SourceFailure struct {
	File    string
	Message string
}

// CompileError enumerates every per-file failure encountered while
// compiling a policy set (spec.md §4.2: "Fails with a structured
// error enumerating per-file parse/compile failures").
type CompileError struct {
	Failures []SourceFailure
}

func (e *CompileError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.File+": "+f.Message)
	}
	return "compiler: " + strings.Join(parts, "; ")
}
