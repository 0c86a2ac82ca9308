package compiler

import (
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"dslang/pkg/ir"
)

// Options controls a Compile run.
type Options struct {
	// Verbose mirrors the driver's -v flag; stage progress goes through
	// glog at verbosity 1.
	Verbose bool
}

// Compile runs the full front end over src: parse, analyze, and, when the
// unit is clean, lower to IR. Diagnostics print to stderr as they are
// found; the returned Reporter holds the counts. The module is nil when
// any error was reported.
func Compile(src, filename string, stderr io.Writer, opts Options) (*ir.Module, *Reporter, error) {
	diags := NewReporter(filename, stderr)
	types := NewTypeTable()

	glog.V(1).Infof("parsing %s (%d bytes)", filename, len(src))
	lex := NewLexer(src, diags)
	unit := NewParser(lex, diags, types).Parse()

	glog.V(1).Infof("analyzing %s: %d top-level declaration(s)", filename, len(unit.Decls))
	NewAnalyzer(diags, types).Analyze(unit)

	if diags.HasErrors() {
		glog.V(1).Infof("skipping code generation for %s: %d error(s)", filename, diags.ErrorCount())
		return nil, diags, nil
	}

	glog.V(1).Infof("generating code for %s", filename)
	mod, err := NewCodeGen(diags, types).Generate(unit)
	if err != nil {
		return nil, diags, errors.Wrap(err, "code generation")
	}
	if diags.HasErrors() {
		return nil, diags, nil
	}
	return mod, diags, nil
}
