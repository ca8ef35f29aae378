package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes scenario YAML to a temp file and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	content := `
name: add_then_write
description: "Adds three and writes the cell"
source: "+++."
input: "unused"
options:
  partial_eval: true
assertions:
  - type: output_base64
    value: "Aw=="
  - type: cell_equals
    offset: 0
    equals: 3
`
	scenario, err := LoadScenario(writeScenario(t, content))
	require.NoError(t, err)

	assert.Equal(t, "add_then_write", scenario.Name)
	assert.Equal(t, "Adds three and writes the cell", scenario.Description)
	assert.Equal(t, "+++.", scenario.Source)
	assert.Equal(t, "unused", scenario.Input)
	require.NotNil(t, scenario.Options)
	require.NotNil(t, scenario.Options.PartialEval)
	assert.True(t, *scenario.Options.PartialEval)
	assert.Nil(t, scenario.Options.Collapse)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertOutputBase64, scenario.Assertions[0].Type)
	assert.Equal(t, int64(0), scenario.Assertions[1].Offset)
	assert.Equal(t, 3, scenario.Assertions[1].Equals)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	content := `
name: typo
description: "Unknown field should be rejected"
source: "+"
assertion:
  - type: matches_unoptimized
`
	_, err := LoadScenario(writeScenario(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "No name"
source: "+"
assertions:
  - type: matches_unoptimized
`,
			wantErr: "name is required",
		},
		{
			name: "name with spaces",
			content: `
name: "has spaces"
description: "Bad name"
source: "+"
assertions:
  - type: matches_unoptimized
`,
			wantErr: "must contain only letters",
		},
		{
			name: "missing description",
			content: `
name: no_description
source: "+"
assertions:
  - type: matches_unoptimized
`,
			wantErr: "description is required",
		},
		{
			name: "missing source",
			content: `
name: no_source
description: "No program"
assertions:
  - type: matches_unoptimized
`,
			wantErr: "source or source_file is required",
		},
		{
			name: "source conflict",
			content: `
name: source_conflict
description: "Both source forms"
source: "+"
source_file: prog.b
assertions:
  - type: matches_unoptimized
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "input conflict",
			content: `
name: input_conflict
description: "Both input forms"
source: "+"
input: "a"
input_base64: "YQ=="
assertions:
  - type: matches_unoptimized
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "bad input base64",
			content: `
name: bad_input
description: "Input is not base64"
source: "+"
input_base64: "not base64!"
assertions:
  - type: matches_unoptimized
`,
			wantErr: "input_base64 is not valid base64",
		},
		{
			name: "no assertions",
			content: `
name: no_assertions
description: "Empty assertions"
source: "+"
assertions: []
`,
			wantErr: "assertions list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_AssertionValidation(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{
			name:      "missing type",
			assertion: `  - value: "x"`,
			wantErr:   "assertions[0]: type is required",
		},
		{
			name:      "unknown type",
			assertion: `  - type: tape_equals`,
			wantErr:   `assertions[0]: unknown type "tape_equals"`,
		},
		{
			name: "bad base64 value",
			assertion: `  - type: output_base64
    value: "***"`,
			wantErr: "assertions[0]: value is not valid base64",
		},
		{
			name: "bad sha256 value",
			assertion: `  - type: output_sha256
    value: "abc123"`,
			wantErr: "assertions[0]: value must be a lowercase hex SHA-256",
		},
		{
			name: "cell value too large",
			assertion: `  - type: cell_equals
    equals: 256`,
			wantErr: "assertions[0]: equals must be in [0, 255]",
		},
		{
			name: "negative op index",
			assertion: `  - type: op_executed
    index: -1`,
			wantErr: "assertions[0]: index must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `
name: assertion_validation
description: "Single invalid assertion"
source: "+"
assertions:
` + tt.assertion + "\n"
			_, err := LoadScenario(writeScenario(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_SourceFileResolved(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.b"), []byte("+++."), 0644))

	content := `
name: from_file
description: "Program lives in a sibling file"
source_file: prog.b
assertions:
  - type: output_base64
    value: "Aw=="
`
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "+++.", scenario.Source)
	assert.Equal(t, filepath.Join(dir, "prog.b"), scenario.SourceFile)
}

func TestLoadScenario_SourceFileMissing(t *testing.T) {
	content := `
name: missing_program
description: "References a program that does not exist"
source_file: nope.b
assertions:
  - type: matches_unoptimized
`
	_, err := LoadScenario(writeScenario(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read program source nope.b")
}

func TestScenario_InputBytes(t *testing.T) {
	plain := &Scenario{Input: "Hi"}
	got, err := plain.InputBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("Hi"), got)

	encoded := &Scenario{InputBase64: "AP8="}
	got, err = encoded.InputBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, got)

	empty := &Scenario{}
	got, err = empty.InputBytes()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScenario_CompilerOptions(t *testing.T) {
	defaults := (&Scenario{}).CompilerOptions()
	assert.True(t, defaults.Collapse)
	assert.True(t, defaults.LoopSimplify)
	assert.False(t, defaults.PartialEval)

	on := true
	off := false
	merged := (&Scenario{Options: &OptionSet{
		Collapse:    &off,
		PartialEval: &on,
	}}).CompilerOptions()
	assert.False(t, merged.Collapse)
	assert.True(t, merged.LoopSimplify)
	assert.True(t, merged.PartialEval)
}
