package store

import (
	"context"
	"fmt"
)

// RecordRun inserts a run and its profile rows in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same
// run ID twice is silently ignored, profile rows included.
//
// counts may be nil when the run was not profiled.
func (s *Store) RecordRun(ctx context.Context, run Run, counts []OpCount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, program_hash, source_path, source, options, input,
		 output_hash, output_bytes, steps, duration_ns,
		 ir_version, tool_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ProgramHash,
		run.SourcePath,
		run.Source,
		run.Options,
		run.Input,
		run.OutputHash,
		run.OutputBytes,
		int64(run.Steps),
		run.DurationNS,
		run.IRVersion,
		run.ToolVersion,
		run.CreatedAt.UTC().Format(createdAtFormat),
	)
	if err != nil {
		return fmt.Errorf("record run: insert run: %w", err)
	}

	// Skip the profile rows when the run row already existed, so a
	// duplicate record cannot attach counts to someone else's run.
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run: rows affected: %w", err)
	}

	if inserted > 0 {
		for _, c := range counts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO op_counts (run_id, op_index, mnemonic, executed)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(run_id, op_index) DO NOTHING
			`,
				run.ID,
				c.OpIndex,
				c.Mnemonic,
				int64(c.Executed),
			)
			if err != nil {
				return fmt.Errorf("record run: insert op count %d: %w", c.OpIndex, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}

	return nil
}
