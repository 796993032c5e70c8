// Package report runs one community area rollup from variable batching to the
// written table.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"commareas/internal/aggregate"
	"commareas/internal/catalog"
	"commareas/internal/census"
	"commareas/internal/config"
	"commareas/internal/logging"
	"commareas/internal/output"
	"commareas/internal/rollup"
	"commareas/internal/types"
)

// ErrNoGeometrySource is returned when geometry output is on but no boundaries
// were loaded.
var ErrNoGeometrySource = errors.New("geometry requested but no geometry source loaded")

// Deps are the lookups and transport a run reads from.
type Deps struct {
	Fetcher   census.Fetcher
	Crosswalk aggregate.Crosswalk
	Catalog   catalog.Catalog
	// Geometry is nil when no boundaries are loaded.
	Geometry output.GeometryLookup
}

// Summary describes a finished run.
type Summary struct {
	Path      string
	Batches   int
	Variables int
	Areas     int
	Stats     aggregate.Stats
	Elapsed   time.Duration
}

// Plan returns the batches a run would request, after checking that every
// code can be rolled up.
func Plan(cfg config.Config, cat catalog.Catalog) ([][]types.VariableCode, error) {
	batches, err := catalog.Batch(cfg.Table, cat, catalog.Options{
		IncludeMOE:   cfg.IncludeMOE,
		MaxBatchSize: cfg.MaxBatchSize,
	})
	if err != nil {
		return nil, err
	}

	var codes []types.VariableCode
	for _, batch := range batches {
		codes = append(codes, batch...)
	}
	if err := rollup.Check(codes); err != nil {
		return nil, fmt.Errorf("table %s: %w", cfg.Table, err)
	}
	return batches, nil
}

// Run fetches every batch in order, folds each payload into the area
// aggregates, rolls them up and writes the table to cfg.OutputPath(). Any
// failure aborts the run before the output file is touched.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Summary, error) {
	start := time.Now()
	logger := logging.ComponentLogger(*zerolog.Ctx(ctx), "report").With().Str("table", cfg.Table).Logger()

	if cfg.IncludeGeometry && deps.Geometry == nil {
		return nil, ErrNoGeometrySource
	}

	batches, err := Plan(cfg, deps.Catalog)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		logger.Warn().Msg("no variables in metadata for table")
	}
	logger.Info().Int("batches", len(batches)).Bool("moe", cfg.IncludeMOE).Msg("variables batched")

	engine := aggregate.NewEngine(deps.Crosswalk, cfg.Table, aggregate.WithLogger(logger))
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payload, err := deps.Fetcher.Fetch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch batch %d of %d: %w", i+1, len(batches), err)
		}
		if err := engine.Add(payload); err != nil {
			return nil, fmt.Errorf("aggregate batch %d of %d: %w", i+1, len(batches), err)
		}
		logger.Debug().Int("batch", i+1).Int("variables", len(batch)).Msg("batch aggregated")
	}
	result := engine.Result()

	rows, err := rollup.Areas(result.Areas, result.Variables)
	if err != nil {
		return nil, err
	}

	formatter := &output.Formatter{
		Labels:   deps.Catalog,
		ZeroAsNA: cfg.Output.ZeroAsNA,
		Logger:   logger,
	}
	if cfg.IncludeGeometry {
		formatter.Geometry = deps.Geometry
	}

	path := cfg.OutputPath()
	if err := formatter.WriteFile(path, rows, result.Variables); err != nil {
		return nil, err
	}

	summary := &Summary{
		Path:      path,
		Batches:   len(batches),
		Variables: len(result.Variables),
		Areas:     len(rows),
		Stats:     result.Stats,
		Elapsed:   time.Since(start),
	}
	logger.Info().
		Str("path", path).
		Int("areas", summary.Areas).
		Int("variables", summary.Variables).
		Int("skipped_tracts", summary.Stats.OutOfScope).
		Dur("elapsed", summary.Elapsed).
		Msg("table written")
	return summary, nil
}
