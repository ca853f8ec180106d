package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"leafspec/internal/export"
	"leafspec/internal/pipeline"
	"leafspec/internal/trace"
)

func newExportCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Reduce inventoried cubes to normalized mean spectra",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.stageLogger()
			if err != nil {
				return err
			}

			store := cctx.openLedger(logger)
			defer store.Close()

			started := time.Now().UTC()
			result, err := export.NewExporter(cfg, logger).Run(cmd.Context())
			recordRun(cmd.Context(), store, logger, pipeline.StageExport, exportDetail(result), started, err)
			if err != nil {
				return err
			}

			printExportResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func exportDetail(result *export.Result) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("written=%d failed=%d modes=%s", result.Written, len(result.Failed), formatModeCounts(result.ModeCounts))
}

func printExportResult(out io.Writer, result *export.Result) {
	colorize := shouldColorize(out)
	kind := statusOK
	if len(result.Failed) > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Export", kind,
		fmt.Sprintf("%d spectra written, %d samples failed", result.Written, len(result.Failed)), colorize))
	fmt.Fprintln(out, renderStatusLine("Modes", statusInfo, formatModeCounts(result.ModeCounts), colorize))

	if len(result.Failed) > 0 {
		rows := make([][]string, 0, len(result.Failed))
		for _, failure := range result.Failed {
			rows = append(rows, []string{failure.SampleID, failure.Sensor, conditionLabel(failure.Timepoint), failure.Reason})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Sample", "Sensor", "Condition", "Reason"}, rows, nil))
	}

	fmt.Fprintf(out, "Run report: %s\n", result.ReportPath)
}

// formatModeCounts renders mode tallies in the same {CLOTH:3;ZSCORE:1} shape
// the trace log uses.
func formatModeCounts(counts map[string]int) string {
	return trace.Modes(counts).Value
}
