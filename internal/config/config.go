// Package config holds the settings of one rollup run. Values come from
// defaults, an optional YAML file, the environment and finally command-line
// flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"commareas/internal/catalog"
	"commareas/internal/census"
	"commareas/internal/crosswalk"
	"commareas/internal/geometry"
	"commareas/internal/output"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Lookup sources.
const (
	LookupCSV    = "csv"
	LookupOracle = "oracle"
)

// Config is passed explicitly to every component; nothing reads it globally.
type Config struct {
	Table           string `yaml:"table" env:"COMMAREAS_TABLE"`
	IncludeMOE      bool   `yaml:"include_moe" env:"COMMAREAS_INCLUDE_MOE"`
	IncludeGeometry bool   `yaml:"include_geometry" env:"COMMAREAS_INCLUDE_GEOMETRY"`
	MaxBatchSize    int    `yaml:"max_batch_size" env:"COMMAREAS_MAX_BATCH_SIZE"`

	Jurisdiction Jurisdiction  `yaml:"jurisdiction"`
	API          APIConfig     `yaml:"api"`
	Sources      SourcesConfig `yaml:"sources"`
	Cache        CacheConfig   `yaml:"cache"`
	Output       OutputConfig  `yaml:"output"`
	Logging      LoggingConfig `yaml:"logging"`
}

// Jurisdiction is the state and county whose tracts are requested.
type Jurisdiction struct {
	State  string `yaml:"state" env:"COMMAREAS_STATE"`
	County string `yaml:"county" env:"COMMAREAS_COUNTY"`
}

// APIConfig locates the Census data API.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url" env:"CENSUS_API_BASE_URL"`
	Year     string        `yaml:"year" env:"CENSUS_API_YEAR"`
	Dataset  string        `yaml:"dataset" env:"CENSUS_API_DATASET"`
	Key      string        `yaml:"key" env:"CENSUS_API_KEY"`
	Timeout  time.Duration `yaml:"timeout" env:"CENSUS_API_TIMEOUT"`
	RetryMax int           `yaml:"retry_max" env:"CENSUS_API_RETRY_MAX"`
}

// SourcesConfig names the lookup tables.
type SourcesConfig struct {
	// Lookup is "csv" or "oracle".
	Lookup string `yaml:"lookup" env:"COMMAREAS_LOOKUP"`

	Variables  string `yaml:"variables" env:"COMMAREAS_VARIABLES"`
	TractAreas string `yaml:"tract_areas" env:"COMMAREAS_TRACT_AREAS"`
	TractField string `yaml:"tract_field"`
	AreaField  string `yaml:"area_field"`
	AreaNames  string `yaml:"area_names" env:"COMMAREAS_AREA_NAMES"`

	Geometry        string `yaml:"geometry" env:"COMMAREAS_GEOMETRY"`
	GeometryIDField string `yaml:"geometry_id_field"`
	GeometryField   string `yaml:"geometry_field"`

	// Oracle table names, used when Lookup is "oracle".
	TractAreaTable string `yaml:"tract_area_table"`
	AreaNameTable  string `yaml:"area_name_table"`
	GeometryTable  string `yaml:"geometry_table"`

	// GeometrySDO marks the geometry column as SDO_GEOMETRY rather than WKT text.
	GeometrySDO bool `yaml:"geometry_sdo"`
}

// CacheConfig controls the payload cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"COMMAREAS_CACHE"`
	Path    string        `yaml:"path" env:"COMMAREAS_CACHE_PATH"`
	TTL     time.Duration `yaml:"ttl"`
}

// OutputConfig controls where and how the table is written.
type OutputConfig struct {
	Dir      string `yaml:"dir" env:"COMMAREAS_OUTPUT_DIR"`
	ZeroAsNA bool   `yaml:"zero_as_na"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"COMMAREAS_LOG_LEVEL"`
	Format string `yaml:"format" env:"COMMAREAS_LOG_FORMAT"`
}

// Default returns the settings of the Chicago community area report.
func Default() Config {
	return Config{
		Table:        "B03002",
		MaxBatchSize: catalog.DefaultMaxBatchSize,
		Jurisdiction: Jurisdiction{State: "17", County: "031"},
		API: APIConfig{
			BaseURL:  census.DefaultBaseURL,
			Year:     census.DefaultYear,
			Dataset:  census.DefaultDataset,
			Timeout:  census.DefaultTimeout,
			RetryMax: census.DefaultRetryMax,
		},
		Sources: SourcesConfig{
			Lookup:          LookupCSV,
			Variables:       "variables.csv",
			TractAreas:      "CensusTractsTIGER2010.csv",
			TractField:      crosswalk.DefaultTractField,
			AreaField:       crosswalk.DefaultAreaField,
			AreaNames:       "hardship.csv",
			Geometry:        "CommAreas.csv",
			GeometryIDField: geometry.DefaultIDField,
			GeometryField:   geometry.DefaultGeometryField,
			TractAreaTable:  "CENSUS_TRACTS_TIGER2010",
			AreaNameTable:   "HARDSHIP_INDEX",
			GeometryTable:   "COMM_AREAS",
		},
		Cache: CacheConfig{
			Path: "commareas-cache.db",
			TTL:  30 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Dir:      ".",
			ZeroAsNA: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any variables set in the environment.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks that a run can start with cfg.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Table) == "" {
		problems = append(problems, "table is required")
	}
	if c.MaxBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("max_batch_size must be at least 1, got %d", c.MaxBatchSize))
	}
	if c.Jurisdiction.State == "" || c.Jurisdiction.County == "" {
		problems = append(problems, "jurisdiction state and county are required")
	}
	switch c.Sources.Lookup {
	case LookupCSV:
		if c.Sources.TractAreas == "" || c.Sources.AreaNames == "" {
			problems = append(problems, "sources.tract_areas and sources.area_names are required")
		}
		if c.IncludeGeometry && c.Sources.Geometry == "" {
			problems = append(problems, "sources.geometry is required when geometry is included")
		}
	case LookupOracle:
		if c.Sources.TractAreaTable == "" || c.Sources.AreaNameTable == "" {
			problems = append(problems, "sources.tract_area_table and sources.area_name_table are required")
		}
		if c.IncludeGeometry && c.Sources.GeometryTable == "" && c.Sources.Geometry == "" {
			problems = append(problems, "a geometry table or file is required when geometry is included")
		}
	default:
		problems = append(problems, fmt.Sprintf("sources.lookup must be %q or %q, got %q", LookupCSV, LookupOracle, c.Sources.Lookup))
	}
	if c.Sources.Variables == "" {
		problems = append(problems, "sources.variables is required")
	}
	if c.Sources.TractField == "" || c.Sources.AreaField == "" {
		problems = append(problems, "sources.tract_field and sources.area_field are required")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		problems = append(problems, "cache.path is required when the cache is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// OutputPath is where the run writes its table.
func (c Config) OutputPath() string {
	return filepath.Join(c.Output.Dir, output.FileName(c.Table, c.IncludeGeometry, c.IncludeMOE))
}
