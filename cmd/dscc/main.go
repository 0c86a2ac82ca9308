// Command dscc compiles a dsLang source file to IR text or, through a
// registered backend, an object file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dslang/pkg/compiler"
	"dslang/pkg/ir"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dscc:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output   string
		emitText bool
		emitObj  bool
		optLevel int
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "dscc <file.ds>",
		Short: "dsLang compiler",
		Long: "dscc compiles a single dsLang source file. The default and -S " +
			"modes write the textual IR; -c asks a registered backend for an " +
			"object file.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				flag.Set("v", "1")
			}
			flag.Set("logtostderr", "true")
			defer glog.Flush()
			return run(args[0], output, emitText || !emitObj, optLevel, verbose)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .s or .o extension)")
	cmd.Flags().BoolVarP(&emitText, "emit-ir", "S", false, "write textual IR (default)")
	cmd.Flags().BoolVarP(&emitObj, "compile", "c", false, "write an object file via a registered backend")
	cmd.Flags().IntVarP(&optLevel, "opt", "O", 0, "backend optimization level")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log compilation stages to stderr")
	return cmd
}

func run(input, output string, emitText bool, optLevel int, verbose bool) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	mod, diags, err := compiler.Compile(string(data), input, os.Stderr, compiler.Options{Verbose: verbose})
	diags.PrintSummary()
	if err != nil {
		return err
	}
	if diags.HasErrors() {
		return errors.Errorf("%d error(s)", diags.ErrorCount())
	}

	if output == "" {
		output = defaultOutput(input, emitText)
	}
	out, err := os.Create(output)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	defer out.Close()

	if emitText {
		return ir.EmitText(mod, out)
	}
	backend, err := ir.Lookup("native")
	if err != nil {
		return err
	}
	return backend.EmitObject(mod, out, optLevel)
}

// defaultOutput swaps the input's extension: .s for IR text, .o for objects.
func defaultOutput(input string, emitText bool) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if emitText {
		return base + ".s"
	}
	return base + ".o"
}
