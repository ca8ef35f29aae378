package harness

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures the deterministic observables of a scenario execution.
// Output is base64-encoded so binary payloads survive the JSON round trip.
type Snapshot struct {
	ScenarioName string   `json:"scenario_name"`
	OutputBase64 string   `json:"output_base64"`
	Steps        uint64   `json:"steps"`
	OpCounts     []uint64 `json:"op_counts"`
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The returned result lets callers additionally check scenario assertions;
// the golden comparison itself covers only output, steps, and counts.
// Returns an error if scenario execution fails. Snapshot mismatches fail
// the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		OutputBase64: base64.StdEncoding.EncodeToString(result.Output),
		Steps:        result.Steps,
		OpCounts:     result.OpCounts,
	}
	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
