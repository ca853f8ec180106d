package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leafspec/internal/logging"
	"leafspec/internal/runs"
)

var conditionCaser = cases.Title(language.Und)

// conditionLabel renders a timepoint the way the field logs name it:
// "before" is the pre-inoculation acquisition, "2h" the two-hour follow-up,
// and D<n> the daily series.
func conditionLabel(timepoint string) string {
	switch {
	case timepoint == "":
		return "-"
	case timepoint == "before":
		return conditionCaser.String("before inoculation")
	case timepoint == "2h":
		return "2h " + conditionCaser.String("post inoculation")
	case strings.HasPrefix(timepoint, "D") && len(timepoint) > 1:
		return conditionCaser.String("day") + " " + timepoint[1:]
	}
	return conditionCaser.String(timepoint)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// recordRun appends one stage invocation to the run ledger. A nil store or a
// write failure only logs: history never blocks the pipeline.
func recordRun(ctx context.Context, store *runs.Store, logger *slog.Logger, stage, detail string, started time.Time, runErr error) {
	if store == nil {
		return
	}
	run := runs.Run{
		Stage:      stage,
		Status:     runs.StatusForError(runErr),
		Detail:     detail,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if _, err := store.Record(ctx, run); err != nil {
		if logger == nil {
			logger = logging.NewNop()
		}
		logger.Warn("run ledger write failed", logging.Error(err))
	}
}
