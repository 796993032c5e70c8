package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"commareas/internal/catalog"
	"commareas/internal/census"
	"commareas/internal/config"
	"commareas/internal/report"
	"commareas/internal/types"
)

func newBatchesCmd(a *app) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Print the API requests a run would make, without sending them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			cat, err := catalog.Load(cfg.Sources.Variables)
			if err != nil {
				return err
			}
			batches, err := report.Plan(cfg, cat)
			if err != nil {
				return err
			}
			printBatches(cmd.OutOrStdout(), cfg, batches)
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// printBatches lists each batch with its request URL. The API key is left
// out so the output can be shared.
func printBatches(w io.Writer, cfg config.Config, batches [][]types.VariableCode) {
	client := census.NewClient(census.Config{
		BaseURL: cfg.API.BaseURL,
		Year:    cfg.API.Year,
		Dataset: cfg.API.Dataset,
		State:   cfg.Jurisdiction.State,
		County:  cfg.Jurisdiction.County,
	})

	fmt.Fprintf(w, "%s: %d batches\n", cfg.Table, len(batches))
	for i, batch := range batches {
		fmt.Fprintf(w, "\nbatch %d (%d variables)\n  %s\n", i+1, len(batch), client.RequestURL(batch))
	}
	fmt.Fprintf(w, "\noutput: %s\n", cfg.OutputPath())
}
