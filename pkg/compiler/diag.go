package compiler

import (
	"fmt"
	"io"
)

// Severity classifies a diagnostic record.
type Severity int

const (
	SevError Severity = iota
	SevWarning
	SevNote
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	case SevNote:
		return "note"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic is one immutable error/warning/note record.
type Diagnostic struct {
	Severity Severity
	Message  string
	File     string
	Line     int
	Col      int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Col, d.Severity, d.Message)
}

// Reporter collects diagnostics for one compilation unit. Each record is
// printed to w the moment it is reported and appended to an ordered list
// that is never pruned, so counts and replay stay consistent. A Reporter is
// written by a single goroutine.
type Reporter struct {
	file     string
	w        io.Writer
	records  []Diagnostic
	errors   int
	warnings int
}

// NewReporter returns a Reporter for the named source file. Diagnostics are
// printed to w; pass io.Discard to collect silently.
func NewReporter(file string, w io.Writer) *Reporter {
	return &Reporter{file: file, w: w}
}

func (r *Reporter) report(sev Severity, line, col int, format string, args ...any) {
	d := Diagnostic{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		File:     r.file,
		Line:     line,
		Col:      col,
	}
	r.records = append(r.records, d)
	switch sev {
	case SevError:
		r.errors++
	case SevWarning:
		r.warnings++
	}
	fmt.Fprintln(r.w, d)
}

// Errorf records and prints an error at the given position.
func (r *Reporter) Errorf(line, col int, format string, args ...any) {
	r.report(SevError, line, col, format, args...)
}

// Warnf records and prints a warning at the given position.
func (r *Reporter) Warnf(line, col int, format string, args ...any) {
	r.report(SevWarning, line, col, format, args...)
}

// Notef records and prints a note at the given position.
func (r *Reporter) Notef(line, col int, format string, args ...any) {
	r.report(SevNote, line, col, format, args...)
}

// errorAt reports an error positioned at tok.
func (r *Reporter) errorAt(tok Token, format string, args ...any) {
	r.Errorf(tok.Line, tok.Col, format, args...)
}

// File returns the source filename diagnostics are attributed to.
func (r *Reporter) File() string { return r.file }

func (r *Reporter) ErrorCount() int   { return r.errors }
func (r *Reporter) WarningCount() int { return r.warnings }

// HasErrors reports whether at least one error was recorded.
func (r *Reporter) HasErrors() bool { return r.errors > 0 }

// Diagnostics returns every record reported so far, in report order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.records }

// PrintSummary writes the end-of-compilation count line.
func (r *Reporter) PrintSummary() {
	fmt.Fprintf(r.w, "%d %s and %d %s generated.\n",
		r.errors, plural(r.errors, "error"),
		r.warnings, plural(r.warnings, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
