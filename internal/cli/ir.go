package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
)

// IROptions holds flags for the ir command.
type IROptions struct {
	*RootOptions
	Optimizer OptimizerFlags
}

// IRResult holds the IR listing for a compiled program.
type IRResult struct {
	Path        string `json:"path"`
	ProgramHash string `json:"program_hash"`
	Ops         int    `json:"ops"`
	Listing     string `json:"listing"`
}

// NewIRCommand creates the ir command.
func NewIRCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IROptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ir <source-file>",
		Short: "Compile a program and print its IR listing",
		Long: `Compile a program and print the optimized IR listing.

The listing shows one op per line with its arena index and operands,
nesting loop bodies by indentation. Pass-selection flags control which
rewrites run, so the effect of each optimization can be inspected.

Examples:
  bfc ir hello.b
  bfc ir hello.b --no-loop-simplify
  bfc ir hello.b --partial-eval --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIR(opts, args[0], cmd)
		},
	}

	addOptimizerFlags(cmd, &opts.Optimizer)

	return cmd
}

func runIR(opts *IROptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	src, err := LoadProgram(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputLoadError(formatter, loadErr)
		}
		return outputLoadError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Path: path})
	}

	tokens, err := lexer.Scan(src)
	if err != nil {
		return outputProgramFailure(formatter, err)
	}

	prog := compiler.Compile(tokens, opts.Optimizer.Options())
	result := IRResult{
		Path:        path,
		ProgramHash: ir.HashSource([]byte(lexer.Canonical(tokens))),
		Ops:         prog.Len(),
		Listing:     ir.DisasmProgram(prog),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.VerboseLog("Program hash: %s", result.ProgramHash)
	formatter.VerboseLog("Arena ops: %d", result.Ops)
	fmt.Fprint(formatter.Writer, result.Listing)
	return nil
}
