package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/diagcheck/internal/testutil"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore opens a fresh store with a deterministic clock and
// sequential run IDs ("run-0001", "run-0002", ...).
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path,
		WithClock(testutil.NewDeterministicClock(testEpoch, time.Second)),
		WithIDGenerator(testutil.NewSequentialIDGenerator("run")),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(testDir, outcome string) Run {
	return Run{
		TestDir:         testDir,
		DatabaseDir:     filepath.Join(testDir, "db"),
		Outcome:         outcome,
		ActualDigest:    "actual-digest",
		ExpectedDigest:  "expected-digest",
		ActualEntries:   2,
		ExpectedEntries: 2,
	}
}
