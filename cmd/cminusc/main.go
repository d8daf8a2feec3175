package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/martin041313/c-minus/pkg/ast"
	"github.com/martin041313/c-minus/pkg/codegen"
	"github.com/martin041313/c-minus/pkg/dvm"
	"github.com/martin041313/c-minus/pkg/parser"
	"github.com/martin041313/c-minus/pkg/semantic"
)

var (
	outputFile string
	traceCode  bool
	debug      bool
	dumpAST    bool
	runProgram bool
)

var rootCmd = &cobra.Command{
	Use:   "cminusc [source file]",
	Short: "C-minus compiler targeting the D-Code stack machine",
	Long: `cminusc compiles C-minus source files to D-Code, a textual
three-address instruction format for a simple stack machine.

EXAMPLES:
  cminusc prog.cm                 # compile to prog.dc
  cminusc prog.cm -o out.dc       # choose the output file
  cminusc prog.cm --trace-code    # keep comments in the listing
  cminusc prog.cm --run           # compile and execute immediately
  cminusc prog.cm --dump-ast      # print the decorated AST as JSON`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return compile(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", env.Str("CMINUS_OUTPUT"),
		"output file (default: source with .dc extension)")
	rootCmd.Flags().BoolVarP(&traceCode, "trace-code", "t", env.Bool("CMINUS_TRACE"),
		"keep comments in the emitted listing")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "show compilation details")
	rootCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the decorated AST as JSON and exit")
	rootCmd.Flags().BoolVar(&runProgram, "run", false, "execute the compiled program")
}

func compile(sourceFile string) error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	tree, err := parser.ParseFile(sourceFile)
	if err != nil {
		return err
	}

	syms, err := semantic.Analyze(tree)
	if err != nil {
		return err
	}

	moduleName := strings.TrimSuffix(sourceFile, ".cm")
	if dumpAST {
		codegen.AnalyzeLayout(tree)
		data, err := ast.DumpJSON(tree)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	out := outputFile
	if out == "" {
		out = moduleName + ".dc"
	}
	if err := codegen.CodeGen(tree, syms, out, moduleName, traceCode); err != nil {
		return err
	}
	log.Debugf("wrote %s", out)

	if runProgram {
		listing, err := os.Open(out)
		if err != nil {
			return err
		}
		defer listing.Close()
		return dvm.Run(listing, os.Stdin, os.Stdout)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
