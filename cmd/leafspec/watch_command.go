package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leafspec/internal/export"
	"leafspec/internal/inventory"
	"leafspec/internal/pipeline"
	"leafspec/internal/watch"
)

func newWatchCommand(cctx *commandContext) *cobra.Command {
	var withExport bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor the raw tree and rescan after changes settle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.stageLogger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store := cctx.openLedger(logger)
			defer store.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			trigger := func(runCtx context.Context) error {
				started := time.Now().UTC()
				scanResult, err := inventory.NewScanner(cfg, logger).Scan(runCtx)
				recordRun(runCtx, store, logger, pipeline.StageInventory, scanDetail(scanResult), started, err)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Inventory", statusError, err.Error(), colorize))
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Inventory", statusOK,
					fmt.Sprintf("%d cube pairs (%d skipped)", len(scanResult.Records), len(scanResult.Skipped)), colorize))

				if !withExport {
					return nil
				}
				started = time.Now().UTC()
				exportResult, err := export.NewExporter(cfg, logger).Run(runCtx)
				recordRun(runCtx, store, logger, pipeline.StageExport, exportDetail(exportResult), started, err)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Export", statusError, err.Error(), colorize))
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Export", statusOK,
					fmt.Sprintf("%d spectra written, %d failed", exportResult.Written, len(exportResult.Failed)), colorize))
				return nil
			}

			fmt.Fprintf(out, "Watching %s (debounce %ds); Ctrl-C to stop\n",
				cfg.Paths.RawDir, cfg.Workflow.WatchDebounceSeconds)
			return watch.NewWatcher(cfg, logger, trigger).Run(signalCtx)
		},
	}

	cmd.Flags().BoolVar(&withExport, "export", false, "Also export spectra after each rescan")
	return cmd
}
