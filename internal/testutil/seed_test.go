package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/store"
)

var seedStamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSeedHistory_RecordsExecutionFacts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	runs := SeedHistory(t, dbPath, RunSeed{
		ID:         "seed-1",
		SourcePath: "incr.bf",
		Source:     ",+.",
		Input:      "A",
		Options:    compiler.DefaultOptions(),
		CreatedAt:  seedStamp,
		Duration:   5 * time.Millisecond,
	})
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "seed-1", run.ID)
	assert.Equal(t, "incr.bf", run.SourcePath)
	assert.Equal(t, ir.HashOutput([]byte("B")), run.OutputHash)
	assert.Equal(t, int64(1), run.OutputBytes)
	assert.Equal(t, uint64(3), run.Steps)
	assert.Equal(t, (5 * time.Millisecond).Nanoseconds(), run.DurationNS)
}

func TestSeedHistory_RowsListNewestFirst(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	SeedHistory(t, dbPath,
		RunSeed{ID: "seed-old", SourcePath: "a.bf", Source: "+.", CreatedAt: seedStamp},
		RunSeed{ID: "seed-new", SourcePath: "b.bf", Source: "-.", CreatedAt: seedStamp.Add(time.Second)},
	)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "seed-new", runs[0].ID)
	assert.Equal(t, "seed-old", runs[1].ID)
}

func TestSeedHistory_CanonicalHashIgnoresComments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	runs := SeedHistory(t, dbPath, RunSeed{
		ID:        "seed-1",
		Source:    ", read one\n+ bump\n. echo\n",
		Input:     "A",
		CreatedAt: seedStamp,
	})

	assert.Equal(t, ir.HashSource([]byte(",+.")), runs[0].ProgramHash)
}

func TestSeedHistory_ProfileRecordsOpCounts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	SeedHistory(t, dbPath, RunSeed{
		ID:        "seed-1",
		Source:    "+++.",
		Options:   compiler.DefaultOptions(),
		CreatedAt: seedStamp,
		Profile:   true,
	})

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	counts, err := st.OpCounts(context.Background(), "seed-1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "add", counts[0].Mnemonic)
	assert.Equal(t, uint64(1), counts[0].Executed)
	assert.Equal(t, "output", counts[1].Mnemonic)
	assert.Equal(t, uint64(1), counts[1].Executed)
}

func TestSeedHistory_NoProfileNoCounts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	SeedHistory(t, dbPath, RunSeed{
		ID:        "seed-1",
		Source:    "+.",
		CreatedAt: seedStamp,
	})

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	counts, err := st.OpCounts(context.Background(), "seed-1")
	require.NoError(t, err)
	assert.Empty(t, counts)
}
