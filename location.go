package gocmocka

import (
	"fmt"
	"runtime"
)

// SourceLocation identifies the call site of an expectation, return-value,
// parameter-check, or ordering registration. It exists purely for
// diagnostics: every leftover or failure report names the site that
// queued the entry.
type SourceLocation struct {
	File string
	Line int
}

// String renders the location the way every diagnostic in this package
// prefixes its message, e.g. "/src/app/mock.go:42" (File is the full path
// runtime.Caller reports).
func (l SourceLocation) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// here captures the caller's location. skip counts frames above here: 0
// would report this function itself, so callers normally pass 1 to name
// their own caller.
func here(skip int) SourceLocation {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return SourceLocation{}
	}
	return SourceLocation{File: file, Line: line}
}
