package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run, err := s.RecordRun(ctx, createTestRun("/tests/a", "match"))
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	if run.ID != "run-0001" {
		t.Errorf("ID = %q, want run-0001", run.ID)
	}
	if run.Seq != 1 {
		t.Errorf("Seq = %d, want 1", run.Seq)
	}
	if !run.RecordedAt.Equal(testEpoch) {
		t.Errorf("RecordedAt = %v, want %v", run.RecordedAt, testEpoch)
	}

	got, err := s.ReadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !got.RecordedAt.Equal(run.RecordedAt) {
		t.Errorf("RecordedAt round-trip = %v, want %v", got.RecordedAt, run.RecordedAt)
	}
	got.RecordedAt = run.RecordedAt
	if got != run {
		t.Errorf("ReadRun() = %+v, want %+v", got, run)
	}
}

func TestRecordRun_SeqIncrements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		run, err := s.RecordRun(ctx, createTestRun("/tests/a", "match"))
		if err != nil {
			t.Fatalf("RecordRun() %d failed: %v", i, err)
		}
		if run.Seq != i {
			t.Errorf("run %d: Seq = %d", i, run.Seq)
		}
	}
}

func TestRecordRun_KeepsCallerValues(t *testing.T) {
	s := createTestStore(t)
	at := time.Date(2025, 12, 24, 8, 30, 0, 0, time.FixedZone("CET", 3600))

	in := createTestRun("/tests/a", "learned")
	in.ID = "custom-id"
	in.RecordedAt = at

	run, err := s.RecordRun(context.Background(), in)
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	if run.ID != "custom-id" {
		t.Errorf("ID = %q, want custom-id", run.ID)
	}
	if !run.RecordedAt.Equal(at) || run.RecordedAt.Location() != time.UTC {
		t.Errorf("RecordedAt = %v, want %v in UTC", run.RecordedAt, at)
	}
}

func TestRecordRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := createTestRun("/tests/a", "match")
	in.ID = "same"
	if _, err := s.RecordRun(ctx, in); err != nil {
		t.Fatalf("first RecordRun() failed: %v", err)
	}
	if _, err := s.RecordRun(ctx, in); err == nil {
		t.Error("expected primary key violation for duplicate ID")
	}

	runs, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs after failed insert, want 1", len(runs))
	}
}

func TestRecordRun_DefaultGeneratesUUIDv7(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	run, err := s.RecordRun(context.Background(), createTestRun("/tests/a", "mismatch"))
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	parsed, err := uuid.Parse(run.ID)
	if err != nil {
		t.Fatalf("ID %q is not a UUID: %v", run.ID, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("UUID version = %d, want 7", parsed.Version())
	}
}
