package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"commareas/internal/cache"
	"commareas/internal/catalog"
	"commareas/internal/census"
	"commareas/internal/config"
	"commareas/internal/crosswalk"
	"commareas/internal/database"
	"commareas/internal/geometry"
	"commareas/internal/logging"
)

// Sources are the lookups built once before a run and read-only afterwards.
type Sources struct {
	Catalog   catalog.Catalog
	Crosswalk *crosswalk.Crosswalk
	Geometry  *geometry.Index
}

// Deps pairs the loaded lookups with a fetcher.
func (s *Sources) Deps(f census.Fetcher) Deps {
	deps := Deps{
		Fetcher:   f,
		Crosswalk: s.Crosswalk,
		Catalog:   s.Catalog,
	}
	if s.Geometry != nil {
		deps.Geometry = s.Geometry
	}
	return deps
}

// LoadSources reads the variable metadata, the crosswalk and, when geometry
// output is on, the area boundaries, from CSV files or Oracle per cfg.
func LoadSources(ctx context.Context, cfg config.Config) (*Sources, error) {
	logger := logging.ComponentLogger(*zerolog.Ctx(ctx), "sources")

	cat, err := catalog.Load(cfg.Sources.Variables)
	if err != nil {
		return nil, err
	}
	src := &Sources{Catalog: cat}

	switch cfg.Sources.Lookup {
	case config.LookupOracle:
		if err := src.loadOracle(ctx, cfg); err != nil {
			return nil, err
		}
	default:
		xw, err := crosswalk.LoadFiles(cfg.Sources.TractAreas, cfg.Sources.AreaNames, crosswalk.Fields{
			Tract: cfg.Sources.TractField,
			Area:  cfg.Sources.AreaField,
		})
		if err != nil {
			return nil, err
		}
		src.Crosswalk = xw
	}

	if cfg.IncludeGeometry && src.Geometry == nil {
		ix, err := geometry.Load(cfg.Sources.Geometry, cfg.Sources.GeometryIDField, cfg.Sources.GeometryField)
		if err != nil {
			return nil, err
		}
		src.Geometry = ix
	}

	tracts, areas := src.Crosswalk.Len()
	ev := logger.Info().
		Str("lookup", cfg.Sources.Lookup).
		Int("variables", len(cat)).
		Int("tracts", tracts).
		Int("areas", areas)
	if src.Geometry != nil {
		ev = ev.Int("boundaries", src.Geometry.Len())
	}
	ev.Msg("lookups loaded")
	return src, nil
}

func (s *Sources) loadOracle(ctx context.Context, cfg config.Config) error {
	dbCfg, err := database.LoadDatabaseConfig()
	if err != nil {
		return err
	}
	db, err := database.NewDatabase(ctx, dbCfg, logging.ComponentLogger(*zerolog.Ctx(ctx), "database"))
	if err != nil {
		return err
	}
	defer db.Close()

	tracts, err := db.QueryTractAreas(ctx, cfg.Sources.TractAreaTable, cfg.Sources.TractField, cfg.Sources.AreaField)
	if err != nil {
		return err
	}
	names, err := db.QueryAreaNames(ctx, cfg.Sources.AreaNameTable, crosswalk.AreaNumberField, crosswalk.AreaNameField)
	if err != nil {
		return err
	}
	xw, err := crosswalk.Build(tracts, names)
	if err != nil {
		return fmt.Errorf("build crosswalk: %w", err)
	}
	s.Crosswalk = xw

	if cfg.IncludeGeometry && cfg.Sources.GeometryTable != "" {
		ix, err := db.QueryGeometries(ctx, cfg.Sources.GeometryTable, cfg.Sources.GeometryIDField, cfg.Sources.GeometryField, cfg.Sources.GeometrySDO)
		if err != nil {
			return err
		}
		s.Geometry = ix
	}
	return nil
}

// OpenFetcher builds the Census client, backed by the payload cache when it is
// enabled. The returned close function releases the cache.
func OpenFetcher(ctx context.Context, cfg config.Config) (*census.Client, func() error, error) {
	logger := logging.ComponentLogger(*zerolog.Ctx(ctx), "census")
	opts := []census.Option{census.WithLogger(logger)}
	closeFn := func() error { return nil }

	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		if n, err := store.Purge(ctx); err != nil {
			logger.Warn().Err(err).Msg("could not purge expired cache entries")
		} else if n > 0 {
			logger.Debug().Int64("purged", n).Msg("expired cache entries removed")
		}
		opts = append(opts, census.WithCache(store))
		closeFn = store.Close
	}

	client := census.NewClient(census.Config{
		BaseURL:  cfg.API.BaseURL,
		Year:     cfg.API.Year,
		Dataset:  cfg.API.Dataset,
		State:    cfg.Jurisdiction.State,
		County:   cfg.Jurisdiction.County,
		Key:      cfg.API.Key,
		Timeout:  cfg.API.Timeout,
		RetryMax: cfg.API.RetryMax,
	}, opts...)
	return client, closeFn, nil
}
