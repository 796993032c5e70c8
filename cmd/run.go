package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"commareas/internal/config"
	"commareas/internal/report"
)

// runFlags mirror the config fields a run most often overrides.
type runFlags struct {
	table     string
	moe       bool
	geo       bool
	maxBatch  int
	state     string
	county    string
	year      string
	lookup    string
	outputDir string
	cache     bool
	zeroAsNA  bool
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.table, "table", "t", "", "ACS table id, e.g. B03002")
	fs.BoolVar(&f.moe, "moe", false, "include margin of error columns")
	fs.BoolVar(&f.geo, "geo", false, "include the community area boundary column")
	fs.IntVar(&f.maxBatch, "max-batch", 0, "maximum variables per API request")
	fs.StringVar(&f.state, "state", "", "state FIPS code")
	fs.StringVar(&f.county, "county", "", "county FIPS code")
	fs.StringVar(&f.year, "year", "", "ACS release year")
	fs.StringVar(&f.lookup, "lookup", "", "crosswalk source: csv or oracle")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for the output table")
	fs.BoolVar(&f.cache, "cache", false, "cache API payloads in SQLite")
	fs.BoolVar(&f.zeroAsNA, "zero-as-na", true, "write zero totals as NA")
}

// apply copies the flags the user set onto cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("table") {
		cfg.Table = f.table
	}
	if fs.Changed("moe") {
		cfg.IncludeMOE = f.moe
	}
	if fs.Changed("geo") {
		cfg.IncludeGeometry = f.geo
	}
	if fs.Changed("max-batch") {
		cfg.MaxBatchSize = f.maxBatch
	}
	if fs.Changed("state") {
		cfg.Jurisdiction.State = f.state
	}
	if fs.Changed("county") {
		cfg.Jurisdiction.County = f.county
	}
	if fs.Changed("year") {
		cfg.API.Year = f.year
	}
	if fs.Changed("lookup") {
		cfg.Sources.Lookup = f.lookup
	}
	if fs.Changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if fs.Changed("cache") {
		cfg.Cache.Enabled = f.cache
	}
	if fs.Changed("zero-as-na") {
		cfg.Output.ZeroAsNA = f.zeroAsNA
	}
}

func newRunCmd(a *app) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch a table and write the community area rollup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := report.LoadSources(ctx, cfg)
			if err != nil {
				return err
			}
			fetcher, closeFetcher, err := report.OpenFetcher(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFetcher()

			summary, err := report.Run(ctx, cfg, src.Deps(fetcher))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%sWrote %s%s (%d areas, %d variables, %d batches, %d tracts skipped) in %v\n",
				colorGreen, summary.Path, colorReset,
				summary.Areas, summary.Variables, summary.Batches, summary.Stats.OutOfScope,
				summary.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
