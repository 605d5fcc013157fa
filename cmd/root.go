// Package cmd implements the externref command-line processor: it reads
// a compiled WASM module, rewrites its surrogate externref:: handle
// operations into real reference-type plumbing, and writes the result.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/externref-go/rewriter/cmd/internal/env"
	"github.com/externref-go/rewriter/internal/externref"
	loglevel "github.com/externref-go/rewriter/internal/logging"
	"github.com/externref-go/rewriter/logging"
)

// RootCommand is the externref CLI's single command: there are no
// subcommands, as the processor performs one job.
var RootCommand = &cobra.Command{
	Use:   "externref <path>",
	Short: "Rewrite externref surrogate handles into WASM reference types",
	Long: `externref rewrites a compiled WebAssembly module's surrogate externref::
operations into direct uses of a reference-typed table.

The front-end macro a guest toolchain uses to emit externref support calls
four imported functions (externref::insert, ::get, ::drop, ::guard) because
it cannot yet emit reference-typed import or export signatures directly.
This command reads the module's "__externrefs" custom section, which names
which parameters and return values of which functions carry references,
and rewrites both those signatures and every call site and local variable
touched by the surrogate calls to use a real reference-typed table instead.

A module with no "__externrefs" section is passed through unchanged.

	$ externref module.wasm -o module.rewritten.wasm

Pass "-" for <path> to read from stdin; omit -o or pass "-" to write to
stdout.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return env.CmdFlags.CheckEnvironmentVariables(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		return runProcess(cmd, path, configuredParams)
	},
	SilenceUsage: true,
}

type params struct {
	output    string
	tableName string
	inspect   bool
	logLevel  string
	logFormat string
}

var configuredParams = &params{
	output:    "-",
	tableName: externref.DefaultTableName,
	logLevel:  "info",
	logFormat: "json",
}

func init() {
	RootCommand.Flags().StringVarP(&configuredParams.output, "output", "o", configuredParams.output, "output path, or - for stdout")
	RootCommand.Flags().StringVar(&configuredParams.tableName, "table-name", configuredParams.tableName, "export name for the reference table")
	RootCommand.Flags().BoolVar(&configuredParams.inspect, "inspect", false, "print a report of the rewrites performed to stderr")
	RootCommand.Flags().StringVar(&configuredParams.logLevel, "log-level", configuredParams.logLevel, "log level: error, warn, info, or debug")
	RootCommand.Flags().StringVar(&configuredParams.logFormat, "log-format", configuredParams.logFormat, "log format: json, json-pretty, or text")
}

func runProcess(cmd *cobra.Command, path string, p *params) error {
	log := logging.Get()
	level, err := loglevel.GetLevel(p.logLevel)
	if err != nil {
		return usageError(err)
	}
	log.SetLevel(level)
	log.SetFormatter(loglevel.GetFormatter(p.logFormat, ""))

	input, err := readInput(path)
	if err != nil {
		return usageError(err)
	}

	output, res, err := externref.Process(input, externref.Options{TableName: p.tableName})
	if err != nil {
		return err
	}

	if res.Changed {
		log.Info("rewrote %d affected function(s), reference table at index %d", len(res.Targets), res.TableIndex)
	} else {
		log.Info("module carries no __externrefs declarations; left unchanged")
	}

	if p.inspect {
		externref.Report(cmd.ErrOrStderr(), res)
	}

	return writeOutput(p.output, output)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// usageErr marks an error as a usage failure (exit code 2) rather than a
// processing failure (exit code 1).
type usageErr struct{ error }

func usageError(err error) error { return usageErr{err} }

// Execute runs the root command and returns the process exit code the
// caller should use: 0 on success, 2 on a usage error, 1 on any other
// failure.
func Execute() int {
	err := RootCommand.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	if _, ok := err.(usageErr); ok {
		return 2
	}
	return 1
}
