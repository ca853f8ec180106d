package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"leafspec/internal/export"
	"leafspec/internal/inventory"
	"leafspec/internal/pipeline"
	"leafspec/internal/preflight"
	"leafspec/internal/selfcheck"
)

// lockFileName guards against two full pipeline passes interleaving their
// stage writes.
const lockFileName = "leafspec.lock"

func newRunCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run scan, export, and self-check as one locked pipeline pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, cctx)
		},
	}
}

func runPipeline(cmd *cobra.Command, cctx *commandContext) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.stageLogger()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	lock := flock.New(filepath.Join(cfg.Paths.ReportsDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return pipeline.Wrap(pipeline.ErrInfrastructure, "run", "acquire pipeline lock", lock.Path(), err)
	}
	if !locked {
		return errors.New("another leafspec run is already active")
	}
	defer func() {
		_ = lock.Unlock()
	}()

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	results := preflight.RunAll(cfg)
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	if err := preflight.Err(results); err != nil {
		return err
	}

	store := cctx.openLedger(logger)
	defer store.Close()
	// One run ID across all three stages so their log lines correlate.
	ctx := pipeline.WithRunID(cmd.Context(), uuid.NewString())

	for _, line := range renderSectionHeader("Pipeline", colorize) {
		fmt.Fprintln(out, line)
	}

	started := time.Now().UTC()
	scanResult, err := inventory.NewScanner(cfg, logger).Scan(ctx)
	recordRun(ctx, store, logger, pipeline.StageInventory, scanDetail(scanResult), started, err)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderStatusLine("Inventory", statusOK,
		fmt.Sprintf("%d cube pairs (%d skipped)", len(scanResult.Records), len(scanResult.Skipped)), colorize))

	started = time.Now().UTC()
	exportResult, err := export.NewExporter(cfg, logger).Run(ctx)
	recordRun(ctx, store, logger, pipeline.StageExport, exportDetail(exportResult), started, err)
	if err != nil {
		return err
	}
	exportKind := statusOK
	if len(exportResult.Failed) > 0 {
		exportKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Export", exportKind,
		fmt.Sprintf("%d spectra written, %d failed, modes %s",
			exportResult.Written, len(exportResult.Failed), formatModeCounts(exportResult.ModeCounts)), colorize))

	started = time.Now().UTC()
	report, runErr := selfcheck.NewChecker(cfg, logger).Run(ctx)
	recordRun(ctx, store, logger, pipeline.StageSelfCheck, checkDetail(report), started, runErr)
	if report == nil {
		return runErr
	}
	printCheckReport(out, report)
	return runErr
}
