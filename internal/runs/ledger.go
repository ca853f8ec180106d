package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leafspec/internal/pipeline"
)

// Run statuses.
const (
	// StatusOK: the stage completed and its artifacts are in place.
	StatusOK = "OK"
	// StatusFail: the stage completed but found the data defective.
	StatusFail = "FAIL"
	// StatusError: the stage aborted on an infrastructure or
	// configuration fault.
	StatusError = "ERROR"
)

// Run is one recorded stage invocation.
type Run struct {
	ID         string
	Stage      string
	Status     string
	Detail     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StatusForError maps a stage error to a ledger status: nil is OK, a
// validation verdict is FAIL, anything else is ERROR.
func StatusForError(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, pipeline.ErrValidation):
		return StatusFail
	default:
		return StatusError
	}
}

// Record persists one run. A missing ID is filled with a fresh uuid, missing
// timestamps with the current time. Recording on a nil store is a no-op so
// the pipeline keeps working when the ledger is unavailable.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if s == nil || s.db == nil {
		return run, nil
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}

	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, stage, status, detail, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Stage,
		run.Status,
		run.Detail,
		run.Error,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("run ledger is not open")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stage, status, detail, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished string
		)
		if err := rows.Scan(&run.ID, &run.Stage, &run.Status, &run.Detail, &run.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finished, err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
