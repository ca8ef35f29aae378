// Package harness provides scenario-based conformance testing for the
// toolchain.
//
// The harness compiles a program, runs it in the interpreter with profiling
// enabled, and validates the observed behavior against declarative
// assertions. Scenarios double as regression tests for the optimizer: the
// matches_unoptimized assertion re-runs the same program with every pass
// disabled and compares the two outputs byte for byte.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	source: "+++[->+<]>."
//	input: "abc"
//	options:
//	  partial_eval: true
//	assertions:
//	  - type: output_equals
//	    value: "abc"
//	  - type: cell_equals
//	    offset: 1
//	    equals: 3
//	  - type: matches_unoptimized
//
// A program may be given inline (source) or in a separate file (source_file,
// resolved relative to the scenario file). Input may be given as text (input)
// or as base64 for binary payloads (input_base64). Omitted options fall back
// to the compiler defaults, so scenarios only name the switches they care
// about.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - output_equals: Compares program output against a literal string
//   - output_base64: Compares program output against base64-encoded bytes
//   - output_sha256: Compares the hex SHA-256 of the program output
//   - cell_equals: Verifies a tape cell's final value at an origin-relative offset
//   - op_executed: Verifies how many times an arena op executed
//   - matches_unoptimized: Re-runs the program unoptimized and compares outputs
//
// # Deterministic Testing
//
// Scenario runs are deterministic: input comes from the scenario rather than
// stdin, EOF reads follow the fixed 255 convention, and profiling counts
// depend only on the program and its options. This makes results suitable
// for golden snapshot comparison via RunWithGolden.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/echo.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
