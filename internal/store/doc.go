// Package store provides SQLite-backed history of diagnostics checks.
//
// Every check recorded with RecordRun becomes one row of check_runs holding
// the outcome, the canonical-text digests of both sides (see diag.Digest) and
// the entry counts. The canonical text itself is not stored.
//
// # Ordering
//
//   - Runs are ordered by seq, a logical counter assigned on insert, never by
//     recorded_at.
//   - ListRuns returns newest first: ORDER BY seq DESC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
