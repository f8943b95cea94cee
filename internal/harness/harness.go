package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/roach88/diagcheck/internal/checker"
	"github.com/roach88/diagcheck/internal/config"
	"github.com/roach88/diagcheck/internal/schema"
	"github.com/roach88/diagcheck/internal/testutil"
	"github.com/roach88/diagcheck/internal/tool"
)

var learn atomic.Bool

// SetLearn turns learn mode on or off for later checks. Test packages
// usually wire it to a flag of their own in TestMain.
func SetLearn(v bool) {
	learn.Store(v)
}

// LearnMode reports whether checks should rewrite expectations, either from
// SetLearn or from CODEQL_INTEGRATION_TEST_LEARN=true.
func LearnMode() bool {
	return learn.Load() || config.LearnFromEnv()
}

// Options select what Check runs against.
type Options struct {
	// TestDir holds diagnostics.expected and, optionally, diagcheck.yaml.
	TestDir string

	// DatabaseDir overrides the configured database. The default "db" is
	// relative to the working directory (the package directory under go test).
	DatabaseDir string

	// ConfigPath overrides <TestDir>/diagcheck.yaml.
	ConfigPath string

	// Exporter replaces the configured tool, e.g. with a recorded export.
	Exporter tool.Exporter

	Logger *slog.Logger
}

// Check runs a diagnostics check for a Go test.
//
// A mismatch is reported with t.Errorf including the diff; the test keeps
// running. Configuration, tool, parse and I/O failures are reported with
// t.Fatalf. In learn mode the expectations are rewritten and the test passes.
func Check(t testing.TB, opts Options) *checker.Result {
	t.Helper()

	if opts.TestDir == "" {
		opts.TestDir = "."
	}

	cfg, err := config.Resolve(opts.TestDir, opts.ConfigPath)
	if err != nil {
		t.Fatalf("diagcheck: %v", err)
		return nil
	}
	config.ApplyEnv(&cfg)

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c, err := checker.FromConfig(cfg, logger, io.Discard)
	if err != nil {
		t.Fatalf("diagcheck: %v", err)
		return nil
	}
	if opts.Exporter != nil {
		c.Exporter = opts.Exporter
	}

	dbDir := opts.DatabaseDir
	if dbDir == "" {
		dbDir = cfg.DatabasePath()
	}

	result, err := c.Check(context.Background(), checker.Options{
		TestDir:     opts.TestDir,
		DatabaseDir: dbDir,
		Learn:       LearnMode(),
	})

	var mismatch *checker.MismatchError
	if errors.As(err, &mismatch) {
		t.Errorf("diagnostics differ from %s (actual written to %s):\n%s",
			filepath.Join(opts.TestDir, checker.ExpectedFile), mismatch.ActualPath, mismatch.Diff)
		return result
	}
	if err != nil {
		t.Fatalf("diagcheck: %v", err)
		return nil
	}

	if result.Outcome == checker.OutcomeLearned {
		t.Logf("diagcheck: wrote %s (%d entries)", result.ArtifactPath, result.Actual.Entries)
	}
	return result
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if the check ended as expected and every assertion held.
	Pass bool `json:"pass"`

	// Outcome is the check outcome, empty if the check failed.
	Outcome checker.Outcome `json:"outcome,omitempty"`

	// Actual is the canonical actual text, empty if the check failed
	// before producing it.
	Actual string `json:"actual"`

	// Diff is the unified diff for mismatches.
	Diff string `json:"diff,omitempty"`

	// Err is the fatal check error, if any.
	Err error `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// RunScenario replays a scenario in testDir, which should be empty.
//
// The returned error reports harness problems (unwritable directory, broken
// schema). Check failures and unmet expectations are recorded in the result.
func RunScenario(ctx context.Context, scenario *Scenario, testDir string) (*Result, error) {
	root, err := filepath.Abs(testDir)
	if err != nil {
		return nil, fmt.Errorf("resolve test directory: %w", err)
	}

	if scenario.Expected != nil {
		path := filepath.Join(root, checker.ExpectedFile)
		if err := os.WriteFile(path, []byte(*scenario.Expected), 0644); err != nil {
			return nil, fmt.Errorf("write scenario expectations: %w", err)
		}
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	output := strings.ReplaceAll(scenario.ToolOutput, TestDirToken, root)
	c := checker.New(&testutil.StaticExporter{Output: []byte(output)})
	c.Validator = validator
	c.Stderr = io.Discard

	result := NewResult()
	res, err := c.Check(ctx, checker.Options{TestDir: root, Learn: scenario.Learn})

	var mismatch *checker.MismatchError
	switch {
	case err == nil || errors.As(err, &mismatch):
		result.Outcome = res.Outcome
		result.Actual = res.Actual.Text
		result.Diff = res.Diff
	default:
		result.Err = err
	}

	checkExpectation(scenario.Expect, result)

	if result.Err == nil {
		failures, err := evaluateAssertions(result.Actual, scenario.Assertions)
		if err != nil {
			return nil, err
		}
		for _, f := range failures {
			result.AddError(f.Error())
		}
	}

	return result, nil
}

func checkExpectation(expect ExpectClause, result *Result) {
	if expect.Error != "" {
		switch {
		case result.Err == nil:
			result.AddError(fmt.Sprintf("expected error containing %q, got outcome %s", expect.Error, result.Outcome))
		case !strings.Contains(result.Err.Error(), expect.Error):
			result.AddError(fmt.Sprintf("expected error containing %q, got: %v", expect.Error, result.Err))
		}
		return
	}

	if result.Err != nil {
		result.AddError(fmt.Sprintf("expected outcome %s, got error: %v", expect.Outcome, result.Err))
		return
	}
	if result.Outcome != expect.Outcome {
		result.AddError(fmt.Sprintf("expected outcome %s, got %s", expect.Outcome, result.Outcome))
	}
}
