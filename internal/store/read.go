package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `id, seq, test_dir, database_dir, outcome, actual_digest, expected_digest,
		actual_entries, expected_entries, recorded_at`

// ListRuns returns recorded runs, newest first (ORDER BY seq DESC).
// An empty testDir lists runs for every test directory. A limit of zero or
// less returns all matching runs.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListRuns(ctx context.Context, testDir string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM check_runs`
	var args []any
	if testDir != "" {
		query += ` WHERE test_dir = ?`
		args = append(args, testDir)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM check_runs WHERE id = ?`, id)
	return scanRun(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		recordedAt string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.TestDir,
		&run.DatabaseDir,
		&run.Outcome,
		&run.ActualDigest,
		&run.ExpectedDigest,
		&run.ActualEntries,
		&run.ExpectedEntries,
		&recordedAt,
	)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: parse recorded_at: %w", run.ID, err)
	}
	return run, nil
}
