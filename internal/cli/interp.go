package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/engine"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
	"github.com/tapemachine/bfc/internal/store"
)

// InterpOptions holds flags for the interp command.
type InterpOptions struct {
	*RootOptions
	Optimizer OptimizerFlags
	Profile   bool
	Time      bool
	Record    bool
	Database  string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// NewInterpCommand creates the interp command.
func NewInterpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InterpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "interp <source-file>",
		Short: "Interpret a program",
		Long: `Compile a program to IR and execute it in the interpreter.

The program's input comes from stdin and its output is written raw to
stdout, so interp pipes like any other filter. Profiling and timing
reports are appended after the program finishes; --record stores the
run (source, options, consumed input, output hash, profile) in the
run-history database for later replay.

Exit codes:
  0 - Program ran to completion
  1 - Unbalanced loops or runtime abort
  2 - Command error (file not found, database error, etc.)

Examples:
  bfc interp hello.b
  bfc interp mandelbrot.b -t
  bfc interp primes.b -p --no-loop-simplify
  echo "hi" | bfc interp echo.b --record --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterp(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Profile, "profile", "p", false, "print per-op execution counts and hot loops after the run")
	cmd.Flags().BoolVarP(&opts.Time, "time", "t", false, "report wall-clock execution time")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run in the history database")
	cmd.Flags().StringVar(&opts.Database, "db", "bfc.db", "path to the run-history database")
	addOptimizerFlags(cmd, &opts.Optimizer)

	return cmd
}

func runInterp(opts *InterpOptions, path string, cmd *cobra.Command) error {
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

	compileOpts := opts.Optimizer.Options()
	slog.Debug("compiling program", "path", path, "instructions", len(tokens))
	prog := compiler.Compile(tokens, compileOpts)
	slog.Debug("program compiled", "ops", prog.Len())

	// Recording needs the consumed input and the output bytes, so both
	// streams are teed when --record is set.
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	var inTee, outTee bytes.Buffer
	if opts.Record {
		in = io.TeeReader(in, &inTee)
		out = io.MultiWriter(out, &outTee)
	}

	engineOpts := []engine.EngineOption{
		engine.WithInput(in),
		engine.WithOutput(out),
	}
	if opts.Profile || opts.Record {
		engineOpts = append(engineOpts, engine.WithProfile())
	}

	res, err := engine.New(prog, engineOpts...).Run()
	if err != nil {
		return outputProgramFailure(formatter, err)
	}

	if opts.Time {
		fmt.Fprintf(cmd.ErrOrStderr(), "Executed in %s\n", res.Duration)
	}

	// Reports go to stderr so stdout stays exactly the program's output.
	if opts.Profile {
		fmt.Fprintln(cmd.ErrOrStderr())
		if err := engine.WriteProfile(cmd.ErrOrStderr(), prog, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to write profile", err)
		}
	}

	if opts.Record {
		runID, err := recordRun(opts, path, src, tokens, compileOpts, prog, res, inTee.Bytes(), outTee.Bytes())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		slog.Debug("run recorded", "id", runID, "db", opts.Database)
		formatter.VerboseLog("Recorded run %s", runID)
	}

	return nil
}

// recordRun stores a completed execution in the run-history database and
// returns the new run's ID.
func recordRun(opts *InterpOptions, path string, src []byte, tokens []lexer.Token, compileOpts compiler.Options, prog *ir.Program, res *engine.Result, input, output []byte) (string, error) {
	optJSON, err := json.Marshal(compileOpts)
	if err != nil {
		return "", fmt.Errorf("marshaling options: %w", err)
	}

	gen := opts.RunIDs
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}

	run := store.Run{
		ID:          gen.Generate(),
		ProgramHash: ir.HashSource([]byte(lexer.Canonical(tokens))),
		SourcePath:  path,
		Source:      string(src),
		Options:     string(optJSON),
		Input:       input,
		OutputHash:  ir.HashOutput(output),
		OutputBytes: int64(len(output)),
		Steps:       res.Steps,
		DurationNS:  res.Duration.Nanoseconds(),
		IRVersion:   ir.IRVersion,
		ToolVersion: ir.ToolVersion,
		CreatedAt:   time.Now().UTC(),
	}

	counts := make([]store.OpCount, len(res.Counts))
	for i, executed := range res.Counts {
		counts[i] = store.OpCount{
			RunID:    run.ID,
			OpIndex:  uint32(i),
			Mnemonic: prog.Ops[i].Kind.String(),
			Executed: executed,
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	if err := st.RecordRun(context.Background(), run, counts); err != nil {
		return "", err
	}
	return run.ID, nil
}
