package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/diagcheck/internal/diag"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// evaluateAssertions checks every assertion against the canonical actual
// text and returns one error per failure.
func evaluateAssertions(canonical string, assertions []Assertion) ([]error, error) {
	if len(assertions) == 0 {
		return nil, nil
	}

	entries, err := diag.DecodeConcatenated([]byte(canonical), "actual batch")
	if err != nil {
		return nil, err
	}

	var failures []error
	for _, a := range assertions {
		if err := evaluateAssertion(canonical, entries, a); err != nil {
			failures = append(failures, err)
		}
	}
	return failures, nil
}

func evaluateAssertion(canonical string, entries []any, a Assertion) error {
	switch a.Type {
	case AssertEntryCount:
		if len(entries) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d entries", a.Count),
				Actual:   fmt.Sprintf("%d entries", len(entries)),
			}
		}
	case AssertContainsSource:
		ids := sourceIDs(entries)
		for _, id := range ids {
			if id == a.Source {
				return nil
			}
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("an entry from %s", a.Source),
			Actual:   fmt.Sprintf("sources %v", ids),
		}
	case AssertAbsentSource:
		for _, id := range sourceIDs(entries) {
			if strings.HasPrefix(id, a.Source) {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("no entry from %s*", a.Source),
					Actual:   fmt.Sprintf("entry from %s", id),
				}
			}
		}
	case AssertContainsText:
		if !strings.Contains(canonical, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("text %q", a.Text),
				Actual:   "not found in actual batch",
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func sourceIDs(entries []any) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := diag.SourceID(obj); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
