package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"leafspec/internal/export"
	"leafspec/internal/inventory"
	"leafspec/internal/preflight"
	"leafspec/internal/trace"
)

// newStatusCommand reports environment readiness and dataset state without
// running any stage. Unlike run, a failed check here only colors the output.
func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment checks and dataset state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Dataset", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, metadataStatusLine(cfg.Paths.ProcessedDir, colorize))
			fmt.Fprintln(out, spectraStatusLine(cfg.Paths.ProcessedDir, colorize))
			fmt.Fprintln(out, baselineStatusLine(cfg.Paths.ProcessedDir, colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Last activity", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, lastActivityLine(cfg.Paths.ReportsDir, colorize))
			return nil
		},
	}
}

func metadataStatusLine(processedDir string, colorize bool) string {
	table, err := inventory.ReadTable(filepath.Join(processedDir, inventory.MetaFileName))
	if err != nil {
		return renderStatusLine("Metadata table", statusWarn, "not present (run scan)", colorize)
	}
	return renderStatusLine("Metadata table", statusOK,
		fmt.Sprintf("%d rows (%d samples)", len(table.Records), len(table.Samples())), colorize)
}

func spectraStatusLine(processedDir string, colorize bool) string {
	files, err := export.ListSpectrumFiles(processedDir)
	if err != nil {
		return renderStatusLine("Spectra", statusError, err.Error(), colorize)
	}
	if len(files) == 0 {
		return renderStatusLine("Spectra", statusWarn, "none (run export)", colorize)
	}
	return renderStatusLine("Spectra", statusOK, fmt.Sprintf("%d spectrum files", len(files)), colorize)
}

func baselineStatusLine(processedDir string, colorize bool) string {
	count := 0
	entries, err := os.ReadDir(processedDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && export.IsBaselineFileName(entry.Name()) {
				count++
			}
		}
	}
	if count == 0 {
		return renderStatusLine("Baselines", statusInfo, "no curves (baseline is optional)", colorize)
	}
	return renderStatusLine("Baselines", statusOK, fmt.Sprintf("%d curve(s)", count), colorize)
}

func lastActivityLine(reportsDir string, colorize bool) string {
	entries, err := trace.ReadLog(filepath.Join(reportsDir, trace.FileName))
	if err != nil {
		return renderStatusLine("Trace log", statusError, err.Error(), colorize)
	}
	if len(entries) == 0 {
		return renderStatusLine("Trace log", statusInfo, "no stage has run yet", colorize)
	}
	last := entries[len(entries)-1]
	parts := make([]string, 0, len(last.Fields)+1)
	parts = append(parts, last.Time.Format("2006-01-02 15:04:05"))
	for _, f := range last.Fields {
		parts = append(parts, f.Key+"="+f.Value)
	}
	return renderStatusLine(last.Stage, markerKind(last.Marker), strings.Join(parts, " "), colorize)
}

func markerKind(marker string) statusKind {
	switch marker {
	case trace.MarkerErr:
		return statusError
	case trace.MarkerOK, trace.MarkerDone:
		return statusOK
	}
	return statusInfo
}
