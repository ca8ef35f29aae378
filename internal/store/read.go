package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tapemachine/bfc/internal/runquery"
	"github.com/tapemachine/bfc/internal/runsql"
)

// GetRun returns a single run by ID.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program_hash, source_path, source, options, input,
		       output_hash, output_bytes, steps, duration_ns,
		       ir_version, tool_version, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns recorded runs, newest first. A limit below one returns
// all runs. Returns an empty slice (not nil) when the history is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.QueryRuns(ctx, runquery.All{}, limit)
}

// QueryRuns returns the recorded runs matching the filter, newest first.
// A limit below one returns every match. Returns an empty slice (not
// nil) when nothing matches.
func (s *Store) QueryRuns(ctx context.Context, f runquery.Filter, limit int) ([]Run, error) {
	where, params, err := runsql.Where(f)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	if limit < 1 {
		limit = -1 // SQLite: no limit
	}
	params = append(params, limit)

	rows, err := s.Query(ctx, `
		SELECT id, program_hash, source_path, source, options, input,
		       output_hash, output_bytes, steps, duration_ns,
		       ir_version, tool_version, created_at
		FROM runs
		WHERE `+where+`
		ORDER BY `+runsql.OrderRecentFirst+`
		LIMIT ?
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// OpCounts returns the profile rows of a run ordered by op index.
// Returns an empty slice (not nil) when the run was not profiled.
func (s *Store) OpCounts(ctx context.Context, runID string) ([]OpCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, op_index, mnemonic, executed
		FROM op_counts
		WHERE run_id = ?
		ORDER BY op_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query op counts: %w", err)
	}
	defer rows.Close()

	counts := []OpCount{}
	for rows.Next() {
		var c OpCount
		var executed int64
		if err := rows.Scan(&c.RunID, &c.OpIndex, &c.Mnemonic, &executed); err != nil {
			return nil, fmt.Errorf("scan op count: %w", err)
		}
		c.Executed = uint64(executed)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate op counts: %w", err)
	}

	return counts, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRun.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var steps int64
	var createdAt string

	err := row.Scan(
		&run.ID,
		&run.ProgramHash,
		&run.SourcePath,
		&run.Source,
		&run.Options,
		&run.Input,
		&run.OutputHash,
		&run.OutputBytes,
		&steps,
		&run.DurationNS,
		&run.IRVersion,
		&run.ToolVersion,
		&createdAt,
	)
	if err != nil {
		return Run{}, err
	}

	run.Steps = uint64(steps)
	run.CreatedAt, err = time.Parse(createdAtFormat, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	// BLOB columns come back nil when empty; normalize for callers that
	// compare captured input byte for byte.
	if run.Input == nil {
		run.Input = []byte{}
	}

	return run, nil
}

var _ rowScanner = (*sql.Row)(nil)
var _ rowScanner = (*sql.Rows)(nil)
