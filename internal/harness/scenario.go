package harness

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/tapemachine/bfc/internal/compiler"
)

// validScenarioName restricts scenario names to filename-safe characters.
// Names become golden fixture filenames under testdata/golden.
var validScenarioName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// validSHA256 matches a lowercase hex SHA-256 digest.
var validSHA256 = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Scenario defines a conformance test scenario.
// Scenarios compile and run a single program with fixed input and assert
// on its output, final tape state, and execution counts.
type Scenario struct {
	// Name uniquely identifies this scenario.
	// It is also used as the golden fixture filename.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the program text. Mutually exclusive with SourceFile.
	Source string `yaml:"source,omitempty"`

	// SourceFile is a path to a program file, resolved relative to the
	// scenario file location. After loading, Source holds its contents.
	SourceFile string `yaml:"source_file,omitempty"`

	// Input is the program's stdin as literal text.
	// Mutually exclusive with InputBase64.
	Input string `yaml:"input,omitempty"`

	// InputBase64 is the program's stdin as base64-encoded bytes.
	// Use this for binary payloads that don't survive YAML strings.
	InputBase64 string `yaml:"input_base64,omitempty"`

	// Options overrides individual compiler switches.
	// Unset switches fall back to compiler.DefaultOptions.
	Options *OptionSet `yaml:"options,omitempty"`

	// Assertions validate the final output, tape, and profile.
	// Supported types: output_equals, output_base64, output_sha256,
	// cell_equals, op_executed, matches_unoptimized.
	Assertions []Assertion `yaml:"assertions"`
}

// OptionSet mirrors compiler.Options with optional fields, so a scenario
// can flip one switch without restating the defaults.
type OptionSet struct {
	Collapse     *bool `yaml:"collapse,omitempty"`
	LoopSimplify *bool `yaml:"loop_simplify,omitempty"`
	ScanLoops    *bool `yaml:"scan_loops,omitempty"`
	PartialEval  *bool `yaml:"partial_eval,omitempty"`
}

// Assertion validates one aspect of a scenario run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_equals": Compare output against Value as a literal string
	// - "output_base64": Compare output against base64-decoded Value
	// - "output_sha256": Compare hex SHA-256 of output against Value
	// - "cell_equals": Check the cell at Offset holds Equals
	// - "op_executed": Check the op at arena index Index executed Count times
	// - "matches_unoptimized": Re-run without optimizations and compare outputs
	Type string `yaml:"type"`

	// Value is the expected payload (used by the output_* types).
	Value string `yaml:"value,omitempty"`

	// Offset is the origin-relative cell offset (used by cell_equals).
	Offset int64 `yaml:"offset,omitempty"`

	// Equals is the expected cell value, 0-255 (used by cell_equals).
	Equals int `yaml:"equals,omitempty"`

	// Index is the arena op index (used by op_executed).
	Index int `yaml:"index,omitempty"`

	// Count is the expected execution count (used by op_executed).
	Count uint64 `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputEquals       = "output_equals"
	AssertOutputBase64       = "output_base64"
	AssertOutputSHA256       = "output_sha256"
	AssertCellEquals         = "cell_equals"
	AssertOpExecuted         = "op_executed"
	AssertMatchesUnoptimized = "matches_unoptimized"
)

// LoadScenario reads and parses a scenario YAML file.
// A source_file reference is resolved relative to the scenario file's
// directory and read into Source, so callers never touch the filesystem
// again. Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like
	// "assertion:" vs "assertions:").
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.SourceFile != "" {
		resolved := scenario.SourceFile
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(filepath.Dir(path), resolved)
		}
		src, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to read program source %s: %w", scenario.SourceFile, err)
		}
		scenario.Source = string(src)
		scenario.SourceFile = resolved
	}

	return &scenario, nil
}

// InputBytes returns the program's stdin as raw bytes, decoding
// input_base64 when present.
func (s *Scenario) InputBytes() ([]byte, error) {
	if s.InputBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(s.InputBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode input_base64: %w", err)
		}
		return decoded, nil
	}
	return []byte(s.Input), nil
}

// CompilerOptions merges the scenario's option overrides over the
// compiler defaults.
func (s *Scenario) CompilerOptions() compiler.Options {
	opts := compiler.DefaultOptions()
	if s.Options == nil {
		return opts
	}
	if s.Options.Collapse != nil {
		opts.Collapse = *s.Options.Collapse
	}
	if s.Options.LoopSimplify != nil {
		opts.LoopSimplify = *s.Options.LoopSimplify
	}
	if s.Options.ScanLoops != nil {
		opts.ScanLoops = *s.Options.ScanLoops
	}
	if s.Options.PartialEval != nil {
		opts.PartialEval = *s.Options.PartialEval
	}
	return opts
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validScenarioName.MatchString(s.Name) {
		return fmt.Errorf("name %q must contain only letters, digits, '_', '.', and '-'", s.Name)
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Source == "" && s.SourceFile == "" {
		return fmt.Errorf("source or source_file is required")
	}
	if s.Source != "" && s.SourceFile != "" {
		return fmt.Errorf("source and source_file are mutually exclusive")
	}

	if s.Input != "" && s.InputBase64 != "" {
		return fmt.Errorf("input and input_base64 are mutually exclusive")
	}
	if s.InputBase64 != "" {
		if _, err := base64.StdEncoding.DecodeString(s.InputBase64); err != nil {
			return fmt.Errorf("input_base64 is not valid base64: %w", err)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputEquals:
		// An empty value asserts empty output, so nothing to check.
	case AssertOutputBase64:
		if _, err := base64.StdEncoding.DecodeString(a.Value); err != nil {
			return fmt.Errorf("assertions[%d]: value is not valid base64: %w", index, err)
		}
	case AssertOutputSHA256:
		if !validSHA256.MatchString(a.Value) {
			return fmt.Errorf("assertions[%d]: value must be a lowercase hex SHA-256 digest", index)
		}
	case AssertCellEquals:
		if a.Equals < 0 || a.Equals > 255 {
			return fmt.Errorf("assertions[%d]: equals must be in [0, 255], got %d", index, a.Equals)
		}
	case AssertOpExecuted:
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative, got %d", index, a.Index)
		}
	case AssertMatchesUnoptimized:
		// No fields.
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}

	return nil
}
