package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"leafspec/internal/pipeline"
	"leafspec/internal/selfcheck"
)

func newCheckCommand(cctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the exported dataset against the self-check battery",
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
			report, runErr := selfcheck.NewChecker(cfg, logger).Run(cmd.Context())
			recordRun(cmd.Context(), store, logger, pipeline.StageSelfCheck, checkDetail(report), started, runErr)
			if report == nil {
				return runErr
			}

			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printCheckReport(cmd.OutOrStdout(), report)
			}
			// A FAIL verdict travels out as ErrCheckFailed so the process
			// exits 1 while the report above still reaches the caller.
			return runErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	return cmd
}

func checkDetail(report *selfcheck.Report) string {
	if report == nil {
		return ""
	}
	return fmt.Sprintf("status=%s violations=%d warnings=%d", report.Status, len(report.Violations), len(report.Warnings))
}

func printCheckReport(out io.Writer, report *selfcheck.Report) {
	colorize := shouldColorize(out)
	kind := statusOK
	if !report.Passed() {
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Self-check", kind, report.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Metadata", statusInfo,
		fmt.Sprintf("%d rows, %d samples", report.MetaRows, report.SampleRows), colorize))
	fmt.Fprintln(out, renderStatusLine("Spectra", statusInfo,
		fmt.Sprintf("%d files %s", report.SpectraFiles, formatModeCounts(report.ModeCounts)), colorize))

	if len(report.Violations) > 0 {
		rows := make([][]string, 0, len(report.Violations))
		for _, violation := range report.Violations {
			file := violation.File
			if file == "" {
				file = "-"
			}
			rows = append(rows, []string{violation.Code, file, violation.Detail})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Code", "File", "Detail"}, rows, nil))
	}

	for _, warning := range report.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}

	if report.AuditCopy != "" {
		fmt.Fprintf(out, "Audit copy: %s\n", report.AuditCopy)
	}
}
