package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"leafspec/internal/export"
	"leafspec/internal/pipeline"
)

func newBaselineCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "baseline",
		Short: "Average the baseline timepoint's spectra into per-sensor reference curves",
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
			result, err := export.BuildBaselines(cmd.Context(), cfg, logger)
			recordRun(cmd.Context(), store, logger, pipeline.StageBaseline, baselineDetail(result), started, err)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			sensors := make([]string, 0, len(result.Files))
			for sensor := range result.Files {
				sensors = append(sensors, sensor)
			}
			sort.Strings(sensors)
			for _, sensor := range sensors {
				fmt.Fprintln(out, renderStatusLine(sensor, statusOK,
					fmt.Sprintf("%d spectra averaged into %s", result.Members[sensor], filepath.Base(result.Files[sensor])), colorize))
			}
			for _, skipped := range result.Skipped {
				fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, skipped, colorize))
			}
			return nil
		},
	}
}

func baselineDetail(result *export.BaselineResult) string {
	if result == nil {
		return ""
	}
	total := 0
	for _, n := range result.Members {
		total += n
	}
	return fmt.Sprintf("rule=%s sensors=%d members=%d skipped=%d", result.Rule, len(result.Files), total, len(result.Skipped))
}
