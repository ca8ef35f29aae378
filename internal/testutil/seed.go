package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/engine"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
	"github.com/tapemachine/bfc/internal/store"
)

// RunSeed describes one run-history row to plant in a test database.
//
// Execution facts are not stated up front. SeedHistory lexes, compiles,
// and runs Source against Input, then records what actually happened, so
// a seeded row is always consistent with what replaying it produces. The
// caller pins only identity and timing.
type RunSeed struct {
	// ID is the run's primary key. Fixed IDs keep lookups and rendered
	// tables stable across test runs.
	ID string

	// SourcePath is the recorded origin of the program text.
	SourcePath string

	// Source is the program text. It is stored verbatim and hashed in
	// canonical form, so comments in it do not change the program hash.
	Source string

	// Input is fed to the program and stored as the captured input.
	Input string

	// Options selects the optimizer passes. The zero value runs the
	// plain lowering; most seeds want compiler.DefaultOptions().
	Options compiler.Options

	// CreatedAt is the recorded wall time of the run.
	CreatedAt time.Time

	// Duration is the recorded wall duration. The engine's own
	// measurement is discarded in favor of this pinned value.
	Duration time.Duration

	// Profile also records per-op execution counts.
	Profile bool
}

// SeedHistory opens the run history at dbPath, creating it if missing,
// and records one run per seed. It returns the recorded rows in seed
// order.
func SeedHistory(t *testing.T, dbPath string, seeds ...RunSeed) []store.Run {
	t.Helper()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, st.Close())
	}()

	ctx := context.Background()
	runs := make([]store.Run, 0, len(seeds))
	for _, seed := range seeds {
		run, counts := seed.execute(t)
		require.NoError(t, st.RecordRun(ctx, run, counts))
		runs = append(runs, run)
	}
	return runs
}

// execute runs the seed's program and assembles the row to record.
func (seed RunSeed) execute(t *testing.T) (store.Run, []store.OpCount) {
	t.Helper()

	tokens, err := lexer.Scan([]byte(seed.Source))
	require.NoError(t, err)
	prog := compiler.Compile(tokens, seed.Options)

	var out bytes.Buffer
	opts := []engine.EngineOption{
		engine.WithInput(strings.NewReader(seed.Input)),
		engine.WithOutput(&out),
	}
	if seed.Profile {
		opts = append(opts, engine.WithProfile())
	}
	res, err := engine.New(prog, opts...).Run()
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(seed.Options)
	require.NoError(t, err)

	run := store.Run{
		ID:          seed.ID,
		ProgramHash: ir.HashSource([]byte(lexer.Canonical(tokens))),
		SourcePath:  seed.SourcePath,
		Source:      seed.Source,
		Options:     string(optionsJSON),
		Input:       []byte(seed.Input),
		OutputHash:  ir.HashOutput(out.Bytes()),
		OutputBytes: int64(out.Len()),
		Steps:       res.Steps,
		DurationNS:  seed.Duration.Nanoseconds(),
		IRVersion:   ir.IRVersion,
		ToolVersion: ir.ToolVersion,
		CreatedAt:   seed.CreatedAt,
	}

	var counts []store.OpCount
	for i, executed := range res.Counts {
		counts = append(counts, store.OpCount{
			RunID:    run.ID,
			OpIndex:  uint32(i),
			Mnemonic: prog.Ops[i].Kind.String(),
			Executed: executed,
		})
	}
	return run, counts
}
