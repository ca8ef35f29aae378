package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PassingScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "drain_counter",
		Description: "Drains the counter into the neighbouring cell and writes it",
		Source:      "+++[->+<]>.",
		Assertions: []Assertion{
			{Type: AssertOutputBase64, Value: "Aw=="},
			{Type: AssertCellEquals, Offset: 0, Equals: 0},
			{Type: AssertCellEquals, Offset: 1, Equals: 3},
			{Type: AssertOpExecuted, Index: 1, Count: 1},
			{Type: AssertMatchesUnoptimized},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	assert.Empty(t, result.Errors)
	assert.Equal(t, []byte{3}, result.Output)
	assert.Equal(t, uint64(4), result.Steps)
	require.Len(t, result.OpCounts, 8)
	assert.Equal(t, uint64(1), result.OpCounts[1])
}

func TestRun_CollectsAllFailures(t *testing.T) {
	scenario := &Scenario{
		Name:        "all_wrong",
		Description: "Every expectation is wrong",
		Source:      "+.",
		Assertions: []Assertion{
			{Type: AssertOutputEquals, Value: "zzz"},
			{Type: AssertCellEquals, Offset: 0, Equals: 7},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: output_equals")
	assert.Contains(t, result.Errors[1], "Assertion failed: cell_equals")
	assert.Contains(t, result.Errors[1], "cell 0 == 1")

	// Execution observables are still populated on failure.
	assert.Equal(t, uint64(2), result.Steps)
	assert.Equal(t, []byte{1}, result.Output)
}

func TestRun_CompileError(t *testing.T) {
	scenario := &Scenario{
		Name:        "never_closed",
		Description: "Unbalanced loop fails compilation",
		Source:      "[",
		Assertions:  []Assertion{{Type: AssertMatchesUnoptimized}},
	}

	result, err := Run(scenario)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to compile scenario program")
	assert.Contains(t, err.Error(), "unmatched '['")
}

func TestRun_EOFReadsYield255(t *testing.T) {
	scenario := &Scenario{
		Name:        "read_at_eof",
		Description: "A read past end of input stores 255",
		Source:      ",",
		Assertions: []Assertion{
			{Type: AssertCellEquals, Offset: 0, Equals: 255},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestRun_BinaryInput(t *testing.T) {
	scenario := &Scenario{
		Name:        "binary_roundtrip",
		Description: "Binary input bytes pass through untouched",
		Source:      ",.,.",
		InputBase64: "AP8=",
		Assertions: []Assertion{
			{Type: AssertOutputBase64, Value: "AP8="},
			{Type: AssertCellEquals, Offset: 0, Equals: 255},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	assert.Equal(t, []byte{0x00, 0xff}, result.Output)
}

func TestRun_OutputSHA256(t *testing.T) {
	scenario := &Scenario{
		Name:        "hashed_echo",
		Description: "Echoed output matches its digest",
		Source:      ",.,.",
		Input:       "Hi",
		Assertions: []Assertion{
			{Type: AssertOutputSHA256, Value: "3639efcd08abb273b1619e82e78c29a7df02c1051b1820e99fc395dcaa3326b8"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestRun_OpExecutedOutOfRange(t *testing.T) {
	scenario := &Scenario{
		Name:        "index_beyond_arena",
		Description: "An op index past the arena fails cleanly",
		Source:      "+",
		Assertions: []Assertion{
			{Type: AssertOpExecuted, Index: 5, Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "program has only 1 ops")
}

func TestRun_CellOutsideTapeReadsZero(t *testing.T) {
	scenario := &Scenario{
		Name:        "far_cell",
		Description: "Cells beyond the tape read as zero",
		Source:      "+",
		Assertions: []Assertion{
			{Type: AssertCellEquals, Offset: 9_000_000, Equals: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestRun_MatchesUnoptimizedWithPartialEval(t *testing.T) {
	on := true
	scenario := &Scenario{
		Name:        "residual_increment",
		Description: "Partial evaluation of unknown input matches the reference run",
		Source:      ",+.",
		Input:       "A",
		Options:     &OptionSet{PartialEval: &on},
		Assertions: []Assertion{
			{Type: AssertOutputEquals, Value: "B"},
			{Type: AssertMatchesUnoptimized},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	result.AddError("first failure")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"first failure"}, result.Errors)
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOutputEquals,
		Expected: `"a"`,
		Actual:   `"b"`,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: output_equals")
	assert.Contains(t, msg, `Expected: "a"`)
	assert.Contains(t, msg, `Actual: "b"`)
}

func TestFormatOutput_TruncatesLongPayloads(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	msg := formatOutput(long)
	assert.Contains(t, msg, "(100 bytes)")
	assert.Less(t, len(msg), 100)

	assert.Equal(t, `"ok"`, formatOutput([]byte("ok")))
}
