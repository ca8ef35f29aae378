package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/codegen"
	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Optimizer OptimizerFlags
	AsmOnly   bool
	Output    string
	Run       bool
	Time      bool
	Driver    string
}

// CompileResult holds the outcome of compiling a single source file.
type CompileResult struct {
	Path        string `json:"path"`
	Output      string `json:"output"`
	AsmOnly     bool   `json:"asm_only"`
	Ops         int    `json:"ops"`
	ProgramHash string `json:"program_hash"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <source-file>",
		Short: "Compile a program to a native binary",
		Long: `Compile a program to x86-64 assembly and link it with the runner
into a standalone binary.

By default the binary is named after the source file with its extension
stripped. -S stops after assembly generation and writes a .s file
instead; -r runs the binary immediately after linking, with stdin and
stdout passed through.

Exit codes:
  0 - Compiled (and ran, with -r) successfully
  1 - Unbalanced loops or the program exited with an error
  2 - Command error (file not found, toolchain failure, etc.)

Examples:
  bfc compile hello.b
  bfc compile hello.b -o build/hello
  bfc compile hello.b -S -o hello.s
  bfc compile mandelbrot.b -r -t
  bfc compile primes.b --cc clang --partial-eval`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.AsmOnly, "asm-only", "S", false, "write generated assembly instead of linking a binary")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output path (default: source name without extension)")
	cmd.Flags().BoolVarP(&opts.Run, "run", "r", false, "run the binary after a successful build")
	cmd.Flags().BoolVarP(&opts.Time, "time", "t", false, "report wall-clock execution time (with -r)")
	cmd.Flags().StringVar(&opts.Driver, "cc", codegen.DefaultDriver, "compiler driver used to assemble and link")
	addOptimizerFlags(cmd, &opts.Optimizer)

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.AsmOnly && opts.Run {
		_ = formatter.Error(ErrCodeGeneric, "cannot combine --asm-only with --run", nil)
		return NewExitError(ExitCommandError, "cannot combine --asm-only with --run")
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
	asm, err := codegen.Generate(prog)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "code generation failed", err)
	}
	slog.Debug("assembly generated", "ops", prog.Len(), "bytes", len(asm))

	result := CompileResult{
		Path:        path,
		AsmOnly:     opts.AsmOnly,
		Ops:         prog.Len(),
		ProgramHash: ir.HashSource([]byte(lexer.Canonical(tokens))),
	}
	formatter.VerboseLog("Compiled %s: %d ops, hash %s", path, result.Ops, result.ProgramHash)

	if opts.AsmOnly {
		result.Output = opts.Output
		if result.Output == "" {
			result.Output = programStem(path) + ".s"
		}
		if err := os.WriteFile(result.Output, []byte(asm), 0o644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %v", ErrCodeWriteFailed, err))
		}
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "%s wrote %s\n", passMark(formatter.Writer), result.Output)
		return nil
	}

	result.Output = opts.Output
	if result.Output == "" {
		stem := programStem(path)
		if stem == filepath.Base(path) {
			stem += ".out"
		}
		result.Output = stem
	}

	// The .s intermediate lives in a temp dir unless -S asked for it.
	dir, err := os.MkdirTemp("", "bfc-asm-")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create temp directory", err)
	}
	defer os.RemoveAll(dir)

	asmPath := filepath.Join(dir, programStem(path)+".s")
	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write assembly", err)
	}

	tc := codegen.NewToolchain(opts.Driver)
	slog.Debug("invoking toolchain", "driver", opts.Driver, "asm", asmPath, "output", result.Output)
	if err := tc.Build(cmd.Context(), asmPath, result.Output); err != nil {
		_ = formatter.Error(ErrCodeToolchain, err.Error(), map[string]interface{}{
			"driver": opts.Driver,
		})
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %v", ErrCodeToolchain, err))
	}

	if !opts.Run {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "%s built %s\n", passMark(formatter.Writer), result.Output)
		return nil
	}

	start := time.Now()
	runErr := codegen.RunBinary(cmd.Context(), result.Output, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if opts.Time {
		fmt.Fprintf(cmd.ErrOrStderr(), "Executed in %s\n", time.Since(start))
	}
	if runErr != nil {
		return NewExitError(ExitFailure, runErr.Error())
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return nil
}
