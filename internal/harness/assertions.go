package harness

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/tapemachine/bfc/internal/compiler"
	"github.com/tapemachine/bfc/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes the expected and actual outcomes to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s",
		e.Type, e.Expected, e.Actual)
}

// assertionContext carries everything a scenario run observed.
// The engine is kept alive after Run so cell assertions can inspect the
// final tape.
type assertionContext struct {
	scenario *Scenario
	input    []byte
	output   []byte
	counts   []uint64
	eng      *engine.Engine
}

// evaluateAssertion dispatches to the evaluator for the assertion's type.
// Unknown types are rejected at load time, so the default arm only guards
// against hand-built scenarios.
func evaluateAssertion(a Assertion, actx *assertionContext) error {
	switch a.Type {
	case AssertOutputEquals:
		return assertOutputEquals(a, actx)
	case AssertOutputBase64:
		return assertOutputBase64(a, actx)
	case AssertOutputSHA256:
		return assertOutputSHA256(a, actx)
	case AssertCellEquals:
		return assertCellEquals(a, actx)
	case AssertOpExecuted:
		return assertOpExecuted(a, actx)
	case AssertMatchesUnoptimized:
		return assertMatchesUnoptimized(actx)
	default:
		return fmt.Errorf("unknown assertion type: %q", a.Type)
	}
}

// assertOutputEquals compares the program output against a literal string.
func assertOutputEquals(a Assertion, actx *assertionContext) error {
	if bytes.Equal(actx.output, []byte(a.Value)) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputEquals,
		Expected: formatOutput([]byte(a.Value)),
		Actual:   formatOutput(actx.output),
	}
}

// assertOutputBase64 compares the program output against base64-decoded
// bytes. The value was validated at load time.
func assertOutputBase64(a Assertion, actx *assertionContext) error {
	want, err := base64.StdEncoding.DecodeString(a.Value)
	if err != nil {
		return fmt.Errorf("decoding expected output: %w", err)
	}
	if bytes.Equal(actx.output, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputBase64,
		Expected: formatOutput(want),
		Actual:   formatOutput(actx.output),
	}
}

// assertOutputSHA256 compares the hex SHA-256 digest of the program output.
// The digest is of the raw output bytes, so expected values can be computed
// with sha256sum.
func assertOutputSHA256(a Assertion, actx *assertionContext) error {
	sum := sha256.Sum256(actx.output)
	got := hex.EncodeToString(sum[:])
	if got == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputSHA256,
		Expected: a.Value,
		Actual:   fmt.Sprintf("%s (output %s)", got, formatOutput(actx.output)),
	}
}

// assertCellEquals checks the final value of the cell at an origin-relative
// offset. Offsets outside the tape read as zero.
func assertCellEquals(a Assertion, actx *assertionContext) error {
	got := actx.eng.Cell(a.Offset)
	if got == byte(a.Equals) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCellEquals,
		Expected: fmt.Sprintf("cell %d == %d", a.Offset, a.Equals),
		Actual:   fmt.Sprintf("cell %d == %d", a.Offset, got),
	}
}

// assertOpExecuted checks how many times the op at an arena index executed.
func assertOpExecuted(a Assertion, actx *assertionContext) error {
	if a.Index >= len(actx.counts) {
		return &AssertionError{
			Type:     AssertOpExecuted,
			Expected: fmt.Sprintf("op %d executed %d times", a.Index, a.Count),
			Actual:   fmt.Sprintf("program has only %d ops", len(actx.counts)),
		}
	}
	got := actx.counts[a.Index]
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOpExecuted,
		Expected: fmt.Sprintf("op %d executed %d times", a.Index, a.Count),
		Actual:   fmt.Sprintf("op %d executed %d times", a.Index, got),
	}
}

// assertMatchesUnoptimized re-compiles the scenario program with every
// optimization disabled, runs it on the same input, and compares the two
// outputs byte for byte. This is the harness's oracle for optimizer
// correctness.
func assertMatchesUnoptimized(actx *assertionContext) error {
	prog, err := compiler.Build([]byte(actx.scenario.Source), compiler.Unoptimized())
	if err != nil {
		return fmt.Errorf("compiling reference program: %w", err)
	}

	var out bytes.Buffer
	eng := engine.New(prog,
		engine.WithInput(bytes.NewReader(actx.input)),
		engine.WithOutput(&out),
	)
	if _, err := eng.Run(); err != nil {
		return fmt.Errorf("executing reference program: %w", err)
	}

	if bytes.Equal(actx.output, out.Bytes()) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMatchesUnoptimized,
		Expected: formatOutput(out.Bytes()),
		Actual:   formatOutput(actx.output),
	}
}

// formatOutput renders program output for assertion messages, truncating
// long payloads so failures stay readable.
func formatOutput(b []byte) string {
	const max = 64
	if len(b) <= max {
		return fmt.Sprintf("%q", b)
	}
	return fmt.Sprintf("%q... (%d bytes)", b[:max], len(b))
}
