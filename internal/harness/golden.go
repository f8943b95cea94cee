package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs a scenario in a fresh temp directory, fails the test on
// unmet expectations, and compares the canonical actual text against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Scenarios expected to fail have no actual text and skip the golden
// comparison.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := RunScenario(context.Background(), scenario, t.TempDir())
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n  %s", scenario.Name, strings.Join(result.Errors, "\n  "))
	}

	if result.Err == nil {
		AssertGolden(t, scenario.Name, result)
	}
	return result
}

// AssertGolden compares a result's canonical actual text against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	if result.Err != nil {
		t.Fatalf("golden %s: scenario has no actual text: %v", name, result.Err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Actual))
}

// String summarizes the result for logs.
func (r *Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("error: %v", r.Err)
	}
	return fmt.Sprintf("%s (%d errors)", r.Outcome, len(r.Errors))
}
