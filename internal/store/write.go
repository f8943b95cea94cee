package store

import (
	"context"
	"fmt"
	"time"
)

// Run is one recorded check.
type Run struct {
	ID              string
	Seq             int64
	TestDir         string
	DatabaseDir     string
	Outcome         string // match, mismatch or learned
	ActualDigest    string
	ExpectedDigest  string
	ActualEntries   int
	ExpectedEntries int
	RecordedAt      time.Time
}

// RecordRun appends a run and returns it with ID, Seq and RecordedAt filled
// in. A caller-supplied ID is kept; otherwise one is generated.
//
// Seq is assigned as MAX(seq)+1 inside the insert transaction, so runs from a
// single database are totally ordered regardless of wall-clock skew.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	if run.RecordedAt.IsZero() {
		run.RecordedAt = s.clock.Now()
	}
	run.RecordedAt = run.RecordedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM check_runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO check_runs
		(id, seq, test_dir, database_dir, outcome, actual_digest, expected_digest,
		 actual_entries, expected_entries, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.TestDir,
		run.DatabaseDir,
		run.Outcome,
		run.ActualDigest,
		run.ExpectedDigest,
		run.ActualEntries,
		run.ExpectedEntries,
		run.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}
