// Package checker compares the diagnostics exported by the analysis tool
// against the expectation file stored with a test.
//
// A check runs in three steps:
//
//  1. ProduceActual exports, substitutes, validates, filters and canonicalizes
//     the tool's diagnostics.
//  2. ProduceExpected reads and canonicalizes diagnostics.expected.
//  3. Check compares the two. On mismatch it writes diagnostics.actual and
//     prints a unified diff. In learn mode it rewrites diagnostics.expected
//     and compares nothing.
package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/diagcheck/internal/config"
	"github.com/roach88/diagcheck/internal/diag"
	"github.com/roach88/diagcheck/internal/schema"
	"github.com/roach88/diagcheck/internal/tool"
)

// File names inside a test directory.
const (
	ExpectedFile = "diagnostics.expected"
	ActualFile   = "diagnostics.actual"
)

// Outcome is the result of one check.
type Outcome string

const (
	OutcomeMatch    Outcome = "match"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeLearned  Outcome = "learned"
)

// Options select the test and database directories and the mode.
type Options struct {
	TestDir     string // defaults to "."
	DatabaseDir string // defaults to "db"
	Learn       bool
}

// Batch is a canonicalized set of diagnostics.
type Batch struct {
	Text    string // canonical form
	Entries int    // number of entries after filtering
}

// Result describes a completed check.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	TestDir  string  `json:"test_dir"`
	Actual   Batch   `json:"-"`
	Expected Batch   `json:"-"`

	// Diff is the unified diff, set only on mismatch.
	Diff string `json:"diff,omitempty"`

	// ArtifactPath is the file written by the check: diagnostics.actual on
	// mismatch, diagnostics.expected in learn mode.
	ArtifactPath string `json:"artifact_path,omitempty"`
}

// MismatchError is returned by Check when actual and expected differ.
// The diff has already been written to the checker's Stderr.
type MismatchError struct {
	ActualPath string
	Diff       string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("diagnostics do not match %s (actual written to %s)", ExpectedFile, e.ActualPath)
}

// Checker runs diagnostics checks.
type Checker struct {
	Exporter tool.Exporter

	// Validator checks raw entries before filtering. Nil skips validation.
	Validator *schema.Validator

	Rules       diag.Rules
	Placeholder string

	// Stderr receives the unified diff on mismatch.
	Stderr io.Writer

	Logger *slog.Logger
}

// New returns a checker with the default rules and placeholder.
func New(exporter tool.Exporter) *Checker {
	return &Checker{
		Exporter:    exporter,
		Rules:       diag.DefaultRules(),
		Placeholder: config.DefaultPlaceholder,
		Stderr:      os.Stderr,
	}
}

// FromConfig builds a checker that shells out to cfg.Tool.
func FromConfig(cfg config.Config, logger *slog.Logger, stderr io.Writer) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	exporter := tool.NewCommandExporter(cfg.Tool)
	exporter.Timeout = cfg.Timeout
	exporter.Logger = logger

	c := New(exporter)
	c.Validator = validator
	c.Rules = diag.Rules{
		ExcludeSourcePrefixes: cfg.ExcludeSourcePrefixes,
		VolatileFields:        cfg.VolatileFields,
	}
	c.Placeholder = cfg.Placeholder
	c.Logger = logger
	if stderr != nil {
		c.Stderr = stderr
	}
	return c, nil
}

func (o Options) withDefaults() Options {
	if o.TestDir == "" {
		o.TestDir = "."
	}
	if o.DatabaseDir == "" {
		o.DatabaseDir = config.DefaultDatabase
	}
	return o
}

// ProduceActual exports the tool's diagnostics for databaseDir and returns
// them in canonical form. Occurrences of the absolute testDir are replaced by
// the placeholder before parsing.
func (c *Checker) ProduceActual(ctx context.Context, testDir, databaseDir string) (Batch, error) {
	root, err := filepath.Abs(testDir)
	if err != nil {
		return Batch{}, fmt.Errorf("resolve test directory: %w", err)
	}

	raw, err := c.Exporter.Export(ctx, databaseDir)
	if err != nil {
		return Batch{}, fmt.Errorf("export diagnostics: %w", err)
	}

	text := diag.Substitute(string(raw), root, c.Placeholder)
	entries, err := diag.DecodeArray([]byte(text), "tool output")
	if err != nil {
		return Batch{}, err
	}

	if c.Validator != nil {
		if err := c.Validator.Validate(entries); err != nil {
			return Batch{}, fmt.Errorf("tool output: %w", err)
		}
	}

	kept, err := c.Rules.Apply(entries)
	if err != nil {
		return Batch{}, fmt.Errorf("tool output: %w", err)
	}
	c.logger().Debug("filtered diagnostics", "exported", len(entries), "kept", len(kept))

	canonical, err := diag.Canonicalize(kept)
	if err != nil {
		return Batch{}, fmt.Errorf("canonicalize tool output: %w", err)
	}
	return Batch{Text: canonical, Entries: len(kept)}, nil
}

// ProduceExpected reads diagnostics.expected from testDir and returns it in
// canonical form. Entries are compared as written: no filtering is applied.
func (c *Checker) ProduceExpected(testDir string) (Batch, error) {
	path := filepath.Join(testDir, ExpectedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("read expectations: %w", err)
	}

	entries, err := diag.DecodeConcatenated(data, path)
	if err != nil {
		return Batch{}, err
	}

	canonical, err := diag.Canonicalize(entries)
	if err != nil {
		return Batch{}, fmt.Errorf("canonicalize %s: %w", path, err)
	}
	return Batch{Text: canonical, Entries: len(entries)}, nil
}

// Check runs a full comparison.
//
// On a match it returns a result and a nil error without touching the file
// system. On a mismatch it writes diagnostics.actual, prints the diff to
// c.Stderr and returns both the result and a *MismatchError. Any other error
// aborts the check and is returned with a nil result.
func (c *Checker) Check(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	logger := c.logger()

	actual, err := c.ProduceActual(ctx, opts.TestDir, opts.DatabaseDir)
	if err != nil {
		return nil, err
	}

	result := &Result{TestDir: opts.TestDir, Actual: actual}

	if opts.Learn {
		path := filepath.Join(opts.TestDir, ExpectedFile)
		if err := os.WriteFile(path, []byte(actual.Text), 0644); err != nil {
			return nil, fmt.Errorf("write expectations: %w", err)
		}
		logger.Debug("expectations updated", "path", path, "entries", actual.Entries)
		result.Outcome = OutcomeLearned
		result.Expected = actual
		result.ArtifactPath = path
		return result, nil
	}

	expected, err := c.ProduceExpected(opts.TestDir)
	if err != nil {
		return nil, err
	}
	result.Expected = expected

	if actual.Text == expected.Text {
		logger.Debug("diagnostics match", "test_dir", opts.TestDir, "entries", actual.Entries)
		result.Outcome = OutcomeMatch
		return result, nil
	}

	path := filepath.Join(opts.TestDir, ActualFile)
	if err := os.WriteFile(path, []byte(actual.Text), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ActualFile, err)
	}

	diff, err := UnifiedDiff(actual.Text, expected.Text)
	if err != nil {
		return nil, err
	}
	if c.Stderr != nil {
		fmt.Fprintln(c.Stderr, diff)
	}
	logger.Debug("diagnostics mismatch", "actual", path,
		"actual_entries", actual.Entries, "expected_entries", expected.Entries)

	result.Outcome = OutcomeMismatch
	result.Diff = diff
	result.ArtifactPath = path
	return result, &MismatchError{ActualPath: path, Diff: diff}
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
