package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/engine"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	ID            string `json:"id"`
	SourcePath    string `json:"source_path"`
	Steps         uint64 `json:"steps"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded runs and verify determinism",
		Long: `Re-execute recorded runs and verify they reproduce.

Each recorded run is recompiled from its stored source with its stored
optimizer options, executed against its stored input, and compared to
the recorded output hash and step count. Any divergence means the
toolchain no longer reproduces the run.

Exit codes:
  0 - All runs replayed deterministically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  bfc replay
  bfc replay --db runs.db
  bfc replay --run 01890a5d-ac96-774b-bcce-b302099a8057
  bfc replay --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "bfc.db", "path to the run-history database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.GetRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load run %s", opts.RunID), err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	if len(runs) == 0 {
		if opts.Format == "json" {
			result := ReplayResult{
				Runs:             []ReplayRunResult{},
				TotalRuns:        0,
				AllDeterministic: true,
			}
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		runResult, err := replayAndVerifyRun(run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRun recompiles a recorded run from its stored source and
// options, executes it against the stored input, and compares the outcome
// to the recorded output hash and step count.
func replayAndVerifyRun(run store.Run) (ReplayRunResult, error) {
	var compileOpts compiler.Options
	if err := json.Unmarshal([]byte(run.Options), &compileOpts); err != nil {
		return ReplayRunResult{}, fmt.Errorf("decoding recorded options: %w", err)
	}

	prog, err := compiler.Build([]byte(run.Source), compileOpts)
	if err != nil {
		return ReplayRunResult{}, fmt.Errorf("recompiling recorded source: %w", err)
	}

	result := ReplayRunResult{
		ID:         run.ID,
		SourcePath: run.SourcePath,
	}

	var out bytes.Buffer
	res, err := engine.New(prog,
		engine.WithInput(bytes.NewReader(run.Input)),
		engine.WithOutput(&out),
	).Run()
	if err != nil {
		// The recorded run completed, so an abort on replay is a divergence.
		result.Mismatch = fmt.Sprintf("replay aborted: %v", err)
		return result, nil
	}

	result.Steps = res.Steps
	switch {
	case ir.HashOutput(out.Bytes()) != run.OutputHash:
		result.Mismatch = fmt.Sprintf("output hash mismatch (%d bytes replayed, %d recorded)", out.Len(), run.OutputBytes)
	case res.Steps != run.Steps:
		result.Mismatch = fmt.Sprintf("step count mismatch (%d replayed, %d recorded)", res.Steps, run.Steps)
	default:
		result.Deterministic = true
	}
	return result, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		mark := passMark(w)
		if !run.Deterministic {
			mark = failMark(w)
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", mark, truncateID(run.ID), filepath.Base(run.SourcePath))

		if verbose {
			fmt.Fprintf(w, "  Steps: %d\n", run.Steps)
		}

		if !run.Deterministic {
			fmt.Fprintf(w, "  %s\n", run.Mismatch)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintf(w, "%s All runs replayed deterministically\n", passMark(w))
		return nil
	}

	fmt.Fprintf(w, "%s Determinism verification failed\n", failMark(w))
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
