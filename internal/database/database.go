package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"commareas/internal/config"
	"commareas/internal/crosswalk"
	"commareas/internal/geometry"

	_ "github.com/sijms/go-ora/v2"
)

// ErrInvalidIdentifier is returned for a table or column name that cannot be
// spliced into a query.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var (
	identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*(\.[A-Za-z][A-Za-z0-9_$#]*)?$`)
	column     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*$`)
)

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	if walletLocation != "" {
		// Use wallet-based mTLS connection
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			url.PathEscape(username), url.PathEscape(password), host, port, service, url.PathEscape(walletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password),
		Host:     host + ":" + port,
		Path:     "/" + service,
		RawQuery: "ssl=true", // ADB requires TCPS on 1522
	}).String()
}

// DBConfig holds database connection configuration
type DBConfig struct {
	Host           string        `env:"DB_HOST" envDefault:"localhost"`
	Port           string        `env:"DB_PORT" envDefault:"1521"`
	Service        string        `env:"DB_SERVICE" envDefault:"XE"`
	Username       string        `env:"DB_USERNAME"`
	Password       string        `env:"DB_PASSWORD"`
	WalletLocation string        `env:"DB_WALLET_LOCATION"`
	PingTimeout    time.Duration `env:"DB_PING_TIMEOUT" envDefault:"10s"`
}

// LoadDatabaseConfig loads database configuration from environment variables,
// reading a .env file in the working directory first when there is one.
func LoadDatabaseConfig() (DBConfig, error) {
	_ = config.LoadEnvFile(".env")

	var cfg DBConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse database env: %w", err)
	}
	return cfg, nil
}

// Database holds the database connection and configuration
type Database struct {
	db     *sql.DB
	config DBConfig
	logger zerolog.Logger
}

// NewDatabase opens and pings the lookup database.
func NewDatabase(ctx context.Context, cfg DBConfig, logger zerolog.Logger) (*Database, error) {
	logger.Info().Str("host", cfg.Host).Str("service", cfg.Service).Msg("connecting to Oracle")

	db, err := sql.Open("oracle", dsn(cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Service, cfg.WalletLocation))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, config: cfg, logger: logger}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// QueryTractAreas reads the tract to community area table.
func (d *Database) QueryTractAreas(ctx context.Context, table, tractField, areaField string) ([]crosswalk.TractArea, error) {
	query, err := selectQuery(table, tractField, areaField)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tract areas: %w", err)
	}
	defer rows.Close()

	var out []crosswalk.TractArea
	for rows.Next() {
		var tract, area sql.NullString
		if err := rows.Scan(&tract, &area); err != nil {
			return nil, fmt.Errorf("failed to scan tract area: %w", err)
		}
		out = append(out, crosswalk.TractArea{Tract: tract.String, Area: area.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tract areas: %w", err)
	}

	d.logger.Debug().Str("table", table).Int("rows", len(out)).Msg("tract areas loaded")
	return out, nil
}

// QueryAreaNames reads the community area number and name columns.
func (d *Database) QueryAreaNames(ctx context.Context, table, numberField, nameField string) ([]crosswalk.AreaLabel, error) {
	query, err := selectQuery(table, numberField, nameField)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query area names: %w", err)
	}
	defer rows.Close()

	var out []crosswalk.AreaLabel
	for rows.Next() {
		var area, name sql.NullString
		if err := rows.Scan(&area, &name); err != nil {
			return nil, fmt.Errorf("failed to scan area name: %w", err)
		}
		out = append(out, crosswalk.AreaLabel{Area: area.String, Name: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read area names: %w", err)
	}

	d.logger.Debug().Str("table", table).Int("rows", len(out)).Msg("area names loaded")
	return out, nil
}

// QueryGeometries reads area boundaries. The geometry column is either WKT
// text or SDO_GEOMETRY; the latter is converted with SDO_UTIL.TO_WKTGEOMETRY.
func (d *Database) QueryGeometries(ctx context.Context, table, idField, geomField string, sdo bool) (*geometry.Index, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := checkColumns(idField, geomField); err != nil {
		return nil, err
	}
	geomExpr := quote(geomField)
	if sdo {
		geomExpr = "SDO_UTIL.TO_WKTGEOMETRY(" + geomExpr + ")"
	}
	query := fmt.Sprintf("SELECT %s, %s FROM %s", quote(idField), geomExpr, table)

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query geometries: %w", err)
	}
	defer rows.Close()

	ix := geometry.NewIndex()
	for rows.Next() {
		var id, wkt sql.NullString
		if err := rows.Scan(&id, &wkt); err != nil {
			return nil, fmt.Errorf("failed to scan geometry: %w", err)
		}
		if !ix.Add(geometry.NormalizeID(id.String), wkt.String) {
			d.logger.Debug().Str("area", id.String).Msg("duplicate boundary ignored")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read geometries: %w", err)
	}
	return ix, nil
}

func selectQuery(table string, columns ...string) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	if err := checkColumns(columns...); err != nil {
		return "", err
	}
	query := "SELECT "
	for i, col := range columns {
		if i > 0 {
			query += ", "
		}
		query += quote(col)
	}
	return query + " FROM " + table, nil
}

// checkTable accepts TABLE or SCHEMA.TABLE.
func checkTable(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

func checkColumns(names ...string) error {
	for _, name := range names {
		if !quotable(name) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// quotable reports whether name can be used as a quoted Oracle identifier,
// which allows the spaces found in exported column names.
func quotable(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	for _, r := range name {
		if r == '"' || r < ' ' {
			return false
		}
	}
	return true
}

// quote leaves plain identifiers alone and double-quotes the rest.
func quote(name string) string {
	if column.MatchString(name) {
		return name
	}
	return `"` + name + `"`
}
