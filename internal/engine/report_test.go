package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapemachine/bfc/internal/compiler"
)

func profileOutput(t *testing.T, src string, opts compiler.Options) string {
	t.Helper()
	prog, err := compiler.Build([]byte(src), opts)
	require.NoError(t, err)

	var sink bytes.Buffer
	res, err := New(prog, WithOutput(&sink), WithTapeSize(256), WithProfile()).Run()
	require.NoError(t, err)

	var report bytes.Buffer
	require.NoError(t, WriteProfile(&report, prog, res))
	return report.String()
}

func TestWriteProfile_RequiresCounts(t *testing.T) {
	prog, err := compiler.Build([]byte("+"), compiler.DefaultOptions())
	require.NoError(t, err)

	err = WriteProfile(&bytes.Buffer{}, prog, &Result{Steps: 1})
	assert.Error(t, err)
}

func TestWriteProfile_ListsOpsWithCounts(t *testing.T) {
	out := profileOutput(t, "++[->+<]", compiler.Options{Collapse: true})

	assert.Contains(t, out, "=== Profile ===")
	assert.Contains(t, out, "Steps: 12")
	assert.Contains(t, out, "Index")
	assert.Contains(t, out, "add 2")
	assert.Contains(t, out, "loop")
}

func TestWriteProfile_RanksHotLoops(t *testing.T) {
	out := profileOutput(t, "++[->+<]", compiler.Options{Collapse: true})

	assert.Contains(t, out, "=== Hot Loops ===")
	assert.Contains(t, out, "simple")
	assert.Contains(t, out, "[->+<]")
}

func TestWriteProfile_MarksComplexLoops(t *testing.T) {
	out := profileOutput(t, "+[-.]", compiler.Options{Collapse: true})
	assert.Contains(t, out, "complex")
}

func TestWriteProfile_NoLoops(t *testing.T) {
	out := profileOutput(t, "+.", compiler.DefaultOptions())
	assert.Contains(t, out, "No loops executed.")
}

func TestWriteProfile_IndentsNestedBodies(t *testing.T) {
	out := profileOutput(t, "+[>[-]<-]", compiler.Options{Collapse: true, LoopSimplify: true})
	assert.Contains(t, out, "  clear", "nested body ops are indented under their loop")
}
