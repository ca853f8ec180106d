package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leafspec/internal/chart"
)

func newPlotCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plot",
		Short: "Render exported spectra into an HTML chart page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.stageLogger()
			if err != nil {
				return err
			}

			path, err := chart.RenderSpectra(cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spectra page written: %s\n", path)
			return nil
		},
	}
}
