package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/diagcheck/internal/checker"
)

// TestDirToken in a scenario's tool_output is replaced with the absolute
// test directory before the checker sees it.
const TestDirToken = "${TEST_DIR}"

// Scenario replays a recorded tool export through the checker.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Learn runs the check in learn mode.
	Learn bool `yaml:"learn,omitempty"`

	// ToolOutput is the raw export the fake tool prints.
	ToolOutput string `yaml:"tool_output"`

	// Expected is written to diagnostics.expected before the check.
	// Nil leaves the file absent.
	Expected *string `yaml:"expected,omitempty"`

	// Expect describes how the check must end.
	Expect ExpectClause `yaml:"expect"`

	// Assertions validate the actual batch.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected check result.
type ExpectClause struct {
	// Outcome is match, mismatch or learned. Empty when Error is set.
	Outcome checker.Outcome `yaml:"outcome,omitempty"`

	// Error is a substring of the expected fatal error.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the actual batch.
type Assertion struct {
	// Type is one of entry_count, contains_source, absent_source, contains_text.
	Type string `yaml:"type"`

	// Count is the expected number of entries (entry_count).
	Count int `yaml:"count,omitempty"`

	// Source is a source.id (contains_source) or prefix (absent_source).
	Source string `yaml:"source,omitempty"`

	// Text is a substring of the canonical actual text (contains_text).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertEntryCount     = "entry_count"
	AssertContainsSource = "contains_source"
	AssertAbsentSource   = "absent_source"
	AssertContainsText   = "contains_text"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.ToolOutput == "" {
		return fmt.Errorf("tool_output is required")
	}

	switch {
	case s.Expect.Outcome == "" && s.Expect.Error == "":
		return fmt.Errorf("expect: outcome or error is required")
	case s.Expect.Outcome != "" && s.Expect.Error != "":
		return fmt.Errorf("expect: outcome and error are mutually exclusive")
	}

	switch s.Expect.Outcome {
	case "", checker.OutcomeMatch, checker.OutcomeMismatch, checker.OutcomeLearned:
	default:
		return fmt.Errorf("expect: unknown outcome %q", s.Expect.Outcome)
	}

	if s.Learn && s.Expect.Outcome != "" && s.Expect.Outcome != checker.OutcomeLearned {
		return fmt.Errorf("expect: learn scenarios end in %q, not %q", checker.OutcomeLearned, s.Expect.Outcome)
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
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entry_count", index)
		}
	case AssertContainsSource, AssertAbsentSource:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for %s", index, a.Type)
		}
	case AssertContainsText:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for contains_text", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
