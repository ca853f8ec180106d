package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"leafspec/internal/runs"
)

func newRunsCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline stage invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := runs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			history, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(history) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(history))
			for _, run := range history {
				detail := run.Detail
				if run.Error != "" {
					detail = run.Error
				}
				rows = append(rows, []string{
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Stage,
					run.Status,
					strconv.FormatFloat(run.FinishedAt.Sub(run.StartedAt).Seconds(), 'f', 1, 64) + "s",
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Started (UTC)", "Stage", "Status", "Took", "Detail"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}
