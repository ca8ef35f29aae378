package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/runquery"
	"github.com/tapemachine/bfc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int

	// Filter flags, conjoined when more than one is set.
	Program  string
	Source   string
	Since    string
	Until    string
	MinSteps uint64
}

// HistoryEntry is one recorded run in a history listing. It carries the
// listing columns only; the full record (source, input) stays in the
// database for replay.
type HistoryEntry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SourcePath  string    `json:"source_path"`
	ProgramHash string    `json:"program_hash"`
	Steps       uint64    `json:"steps"`
	OutputBytes int64     `json:"output_bytes"`
	DurationNS  int64     `json:"duration_ns"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with interp --record, newest first.

Filter flags narrow the listing and are conjoined when combined. A
filter that cannot match anything (empty window, malformed hash) still
runs but prints a warning on stderr.

Exit codes:
  0 - Listing printed
  2 - Command error (database not found, bad --since/--until, etc.)

Examples:
  bfc history
  bfc history --db runs.db --limit 5
  bfc history --source mandelbrot.b --min-steps 1000000
  bfc history --since 2026-08-01T00:00:00Z --until 2026-08-25T00:00:00Z
  bfc history --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "bfc.db", "path to the run-history database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only runs of this program hash")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only runs recorded from this source path")
	cmd.Flags().StringVar(&opts.Since, "since", "", "only runs created at or after this RFC 3339 time")
	cmd.Flags().StringVar(&opts.Until, "until", "", "only runs created at or before this RFC 3339 time")
	cmd.Flags().Uint64Var(&opts.MinSteps, "min-steps", 0, "only runs that executed at least this many ops")

	return cmd
}

// filter assembles the filter flags into one conjunction. No flags set
// means an empty All, which matches every run.
func (o *HistoryOptions) filter() (runquery.Filter, error) {
	var terms []runquery.Filter
	if o.Program != "" {
		terms = append(terms, runquery.ProgramIs{Hash: o.Program})
	}
	if o.Source != "" {
		terms = append(terms, runquery.SourceIs{Path: o.Source})
	}
	if o.Since != "" {
		cutoff, err := time.Parse(time.RFC3339, o.Since)
		if err != nil {
			return nil, fmt.Errorf("parsing --since: %w", err)
		}
		terms = append(terms, runquery.Since{Cutoff: cutoff})
	}
	if o.Until != "" {
		cutoff, err := time.Parse(time.RFC3339, o.Until)
		if err != nil {
			return nil, fmt.Errorf("parsing --until: %w", err)
		}
		terms = append(terms, runquery.Until{Cutoff: cutoff})
	}
	if o.MinSteps > 0 {
		terms = append(terms, runquery.MinSteps{Steps: o.MinSteps})
	}
	return runquery.All{Filters: terms}, nil
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Open would create an empty database here, so check first.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	filter, err := opts.filter()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	for _, warning := range runquery.Validate(filter).Warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", warning)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.QueryRuns(context.Background(), filter, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		entries := make([]HistoryEntry, len(runs))
		for i, run := range runs {
			entries[i] = HistoryEntry{
				ID:          run.ID,
				CreatedAt:   run.CreatedAt,
				SourcePath:  run.SourcePath,
				ProgramHash: run.ProgramHash,
				Steps:       run.Steps,
				OutputBytes: run.OutputBytes,
				DurationNS:  run.DurationNS,
			}
		}
		return formatter.Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 8, 8, 1, '\t', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tPROGRAM\tSTEPS\tOUTPUT\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dB\t%s\n",
			truncateID(run.ID),
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			filepath.Base(run.SourcePath),
			run.Steps,
			run.OutputBytes,
			time.Duration(run.DurationNS))
	}
	return tw.Flush()
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
