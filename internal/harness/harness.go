package harness

import (
	"bytes"
	"fmt"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/engine"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh engine with its own tape, so scenarios
// never observe each other's state.
//
// Execution flow:
// 1. Decode the scenario input
// 2. Compile the program with the scenario's options
// 3. Run it with profiling enabled, feeding the scenario input
// 4. Evaluate every assertion, collecting failures
// 5. Return result with pass/fail, output, and counts
//
// Run returns an error only when the scenario itself cannot be executed
// (the program doesn't compile or the run aborts). Assertion failures are
// reported through the result.
func Run(scenario *Scenario) (*Result, error) {
	input, err := scenario.InputBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to decode scenario input: %w", err)
	}

	prog, err := compiler.Build([]byte(scenario.Source), scenario.CompilerOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to compile scenario program: %w", err)
	}

	// Profiling is always on so op_executed assertions and golden
	// snapshots have counts to work with.
	var out bytes.Buffer
	eng := engine.New(prog,
		engine.WithInput(bytes.NewReader(input)),
		engine.WithOutput(&out),
		engine.WithProfile(),
	)
	res, err := eng.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to execute scenario program: %w", err)
	}

	result := NewResult()
	result.Output = out.Bytes()
	result.Steps = res.Steps
	result.OpCounts = res.Counts

	actx := &assertionContext{
		scenario: scenario,
		input:    input,
		output:   result.Output,
		counts:   res.Counts,
		eng:      eng,
	}
	for _, assertion := range scenario.Assertions {
		if err := evaluateAssertion(assertion, actx); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}
