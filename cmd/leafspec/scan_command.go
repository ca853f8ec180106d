package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"leafspec/internal/inventory"
	"leafspec/internal/pipeline"
)

func newScanCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Inventory raw header/cube pairs into the metadata table",
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
			result, err := inventory.NewScanner(cfg, logger).Scan(cmd.Context())
			recordRun(cmd.Context(), store, logger, pipeline.StageInventory, scanDetail(result), started, err)
			if err != nil {
				return err
			}

			printScanResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func scanDetail(result *inventory.Result) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("records=%d skipped=%d", len(result.Records), len(result.Skipped))
}

func printScanResult(out io.Writer, result *inventory.Result) {
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderStatusLine("Inventory", statusOK,
		fmt.Sprintf("%d cube pairs (%d skipped)", len(result.Records), len(result.Skipped)), colorize))

	if len(result.Records) > 0 {
		rows := make([][]string, 0, len(result.Records))
		for _, rec := range result.Records {
			rows = append(rows, []string{
				rec.SampleID,
				rec.Sensor,
				conditionLabel(rec.Timepoint),
				yesNo(rec.IsRef),
				yesNo(rec.HasClothRef),
				rec.AcquiredAt.Format("2006-01-02 15:04"),
			})
		}
		fmt.Fprintln(out, renderTable(out,
			[]string{"Sample", "Sensor", "Condition", "Ref", "Cloth", "Acquired"}, rows, nil))
	}

	if len(result.Skipped) > 0 {
		rows := make([][]string, 0, len(result.Skipped))
		for _, skip := range result.Skipped {
			rows = append(rows, []string{skip.Path, skip.Reason})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Skipped File", "Reason"}, rows, nil))
	}

	fmt.Fprintf(out, "Metadata table: %s\n", result.MetaPath)
}
