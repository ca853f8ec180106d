package runs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"leafspec/internal/pipeline"
	"leafspec/internal/runs"
	"leafspec/internal/selfcheck"
	"leafspec/internal/testsupport"
)

func TestRecordAssignsIDAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	run, err := store.Record(ctx, runs.Run{
		Stage:      pipeline.StageInventory,
		Status:     runs.StatusOK,
		Detail:     "records=12",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected a generated run id")
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("Recent() returned %d runs", len(recent))
	}
	got := recent[0]
	if got.ID != run.ID || got.Stage != pipeline.StageInventory || got.Status != runs.StatusOK {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Detail != "records=12" {
		t.Fatalf("Detail = %q", got.Detail)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(started.Add(2*time.Second)) {
		t.Fatalf("timestamps = %v / %v", got.StartedAt, got.FinishedAt)
	}
}

func TestRecentOrdersNewestFirstAndLimits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, runs.Run{
			Stage:      pipeline.StageExport,
			Status:     runs.StatusOK,
			Detail:     fmt.Sprintf("batch=%d", i),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		})
		if err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent() returned %d runs, want 3", len(recent))
	}
	for i, run := range recent {
		want := fmt.Sprintf("batch=%d", 4-i)
		if run.Detail != want {
			t.Fatalf("run %d detail = %q, want %q", i, run.Detail, want)
		}
	}
}

func TestOpenTwiceKeepsExistingRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	if _, err := store.Record(ctx, runs.Run{Stage: pipeline.StageSelfCheck, Status: runs.StatusFail}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := testsupport.MustOpenLedger(t, cfg)
	recent, err := reopened.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() after reopen error = %v", err)
	}
	if len(recent) != 1 || recent[0].Stage != pipeline.StageSelfCheck {
		t.Fatalf("reopened ledger rows = %+v", recent)
	}
}

func TestNilStoreRecordsNothing(t *testing.T) {
	var store *runs.Store
	run, err := store.Record(context.Background(), runs.Run{Stage: pipeline.StageInventory, Status: runs.StatusOK})
	if err != nil {
		t.Fatalf("Record() on nil store error = %v", err)
	}
	if run.Stage != pipeline.StageInventory {
		t.Fatalf("run = %+v", run)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() on nil store error = %v", err)
	}
	if _, err := store.Recent(context.Background(), 5); err == nil {
		t.Fatal("Recent() on nil store must error")
	}
}

func TestStatusForError(t *testing.T) {
	if got := runs.StatusForError(nil); got != runs.StatusOK {
		t.Fatalf("StatusForError(nil) = %q", got)
	}
	if got := runs.StatusForError(selfcheck.ErrCheckFailed); got != runs.StatusFail {
		t.Fatalf("StatusForError(check failure) = %q", got)
	}
	infra := pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageExport, "write", "", errors.New("disk full"))
	if got := runs.StatusForError(infra); got != runs.StatusError {
		t.Fatalf("StatusForError(infra) = %q", got)
	}
}
