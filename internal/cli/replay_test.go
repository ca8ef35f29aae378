package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapemachine/bfc/internal/store"
	"github.com/tapemachine/bfc/internal/testutil"
)

func runReplayCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// tamperRun edits a recorded row directly, simulating a run whose record
// no longer matches what the toolchain produces.
func tamperRun(t *testing.T, dbPath, query string, args ...any) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.DB().ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func TestReplayAllDeterministic(t *testing.T) {
	dbPath := seedThreeRuns(t)

	out, err := runReplayCmd(t, "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 3 run(s)")
	assert.Contains(t, out, "All runs replayed deterministically")
}

func TestReplayDetectsStepMismatch(t *testing.T) {
	dbPath := seedThreeRuns(t)
	tamperRun(t, dbPath, "UPDATE runs SET steps = steps + 1 WHERE id = ?", "run-early")

	out, err := runReplayCmd(t, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "step count mismatch")
	assert.Contains(t, out, "Determinism verification failed")
}

func TestReplaySpecificRun(t *testing.T) {
	dbPath := seedThreeRuns(t)

	out, err := runReplayCmd(t, "--db", dbPath, "--run", "run-middle")
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 1 run(s)")
	assert.Contains(t, out, "run-middle")
	assert.NotContains(t, out, "run-early")
}

func TestReplayUnknownRunFails(t *testing.T) {
	dbPath := seedThreeRuns(t)

	_, err := runReplayCmd(t, "--db", dbPath, "--run", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load run ghost")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	testutil.SeedHistory(t, dbPath)

	out, err := runReplayCmd(t, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestReplayMissingDatabase(t *testing.T) {
	_, err := runReplayCmd(t, "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayJSONReportsHashMismatch(t *testing.T) {
	dbPath := seedThreeRuns(t)
	tamperRun(t, dbPath, "UPDATE runs SET output_hash = ? WHERE id = ?", "deadbeef", "run-late")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_DETERMINISM", resp.Error.Code)
	assert.False(t, resp.Data.AllDeterministic)

	var tampered *ReplayRunResult
	for i := range resp.Data.Runs {
		if resp.Data.Runs[i].ID == "run-late" {
			tampered = &resp.Data.Runs[i]
		}
	}
	require.NotNil(t, tampered)
	assert.False(t, tampered.Deterministic)
	assert.Contains(t, tampered.Mismatch, "output hash mismatch")
}
