package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/compiler"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bfc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bfc",
		Short: "bfc - optimizing toolchain for the eight-instruction tape language",
		Long: `An optimizing interpreter and native-code compiler for the classic
eight-instruction tape language.

Programs can be checked, inspected as IR, interpreted with profiling,
compiled to x86-64 via the system C driver, recorded to a run-history
database, and replayed for determinism verification.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewIRCommand(opts))
	cmd.AddCommand(NewInterpCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// configureLogging installs the process-wide slog handler. Logs go to
// stderr at info level, debug with --verbose; program output owns stdout.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// OptimizerFlags holds the pass-selection flags shared by the interp,
// compile, and ir commands. Every pass except partial evaluation is on by
// default, so the flags are spelled as opt-outs.
type OptimizerFlags struct {
	NoCollapse     bool
	NoLoopSimplify bool
	NoScanLoops    bool
	PartialEval    bool
}

// addOptimizerFlags registers the shared pass-selection flags on cmd.
func addOptimizerFlags(cmd *cobra.Command, flags *OptimizerFlags) {
	cmd.Flags().BoolVar(&flags.NoCollapse, "no-collapse", false, "disable run-length collapsing")
	cmd.Flags().BoolVar(&flags.NoLoopSimplify, "no-loop-simplify", false, "disable clear/scan/copy loop rewriting")
	cmd.Flags().BoolVar(&flags.NoScanLoops, "no-scan-loops", false, "disable scan loop rewriting")
	cmd.Flags().BoolVar(&flags.PartialEval, "partial-eval", false, "partially evaluate the program at compile time")
}

// Options resolves the flags into a compiler option set.
func (f *OptimizerFlags) Options() compiler.Options {
	opts := compiler.DefaultOptions()
	opts.Collapse = !f.NoCollapse
	opts.LoopSimplify = !f.NoLoopSimplify
	opts.ScanLoops = !f.NoScanLoops
	opts.PartialEval = f.PartialEval
	return opts
}
