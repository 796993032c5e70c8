// Package output renders rolled-up community area rows as a CSV table with
// human-readable column headers.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"commareas/internal/types"
)

// Fixed output columns.
const (
	AreaIDColumn   = "Community Area ID"
	AreaNameColumn = "Community Area Name"
	GeometryColumn = "geo"
)

// ErrUnmappedGeometry is returned when geometry output is on and an area has none.
var ErrUnmappedGeometry = errors.New("no geometry for community area")

// Labeler gives a variable its column header.
type Labeler interface {
	Label(types.VariableCode) (string, bool)
}

// GeometryLookup finds an area's boundary.
type GeometryLookup interface {
	Lookup(types.AreaID) (string, bool)
}

// Formatter builds the output table. Geometry is nil when the geometry column
// is off.
type Formatter struct {
	Labels   Labeler
	Geometry GeometryLookup
	// ZeroAsNA writes a legitimate zero as NA, matching earlier output files.
	ZeroAsNA bool
	Logger   zerolog.Logger
}

// Header returns the column names for codes, which must already be sorted.
func (f *Formatter) Header(codes []types.VariableCode) []string {
	header := make([]string, 0, len(codes)+3)
	header = append(header, AreaIDColumn, AreaNameColumn)
	for _, code := range codes {
		label, ok := f.Labels.Label(code)
		if !ok {
			f.Logger.Warn().Str("variable", string(code)).Msg("no label in variable metadata, using code")
		}
		header = append(header, label)
	}
	if f.Geometry != nil {
		header = append(header, GeometryColumn)
	}
	return header
}

// Rows renders each area in the order given, one column per code. Rows from
// rollup.Areas are already sorted by name.
func (f *Formatter) Rows(rows []types.RolledUpRow, codes []types.VariableCode) ([][]string, error) {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := make([]string, 0, len(codes)+3)
		rec = append(rec, string(row.ID), string(row.Name))
		for _, code := range codes {
			rec = append(rec, row.Values[code].Format(f.ZeroAsNA))
		}
		if f.Geometry != nil {
			geom := row.Geometry
			if geom == "" {
				var ok bool
				geom, ok = f.Geometry.Lookup(row.ID)
				if !ok {
					return nil, fmt.Errorf("%w: %s (id %s)", ErrUnmappedGeometry, row.Name, row.ID)
				}
			}
			rec = append(rec, geom)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Write renders the whole table to w. Nothing is written if any row fails.
func (f *Formatter) Write(w io.Writer, rows []types.RolledUpRow, codes []types.VariableCode) error {
	body, err := f.Rows(rows, codes)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header(codes)); err != nil {
		return err
	}
	if err := cw.WriteAll(body); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes the table to path through a temporary file so a failed
// run leaves no partial output behind.
func (f *Formatter) WriteFile(path string, rows []types.RolledUpRow, codes []types.VariableCode) error {
	body, err := f.Rows(rows, codes)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	cw := csv.NewWriter(file)
	werr := cw.Write(f.Header(codes))
	if werr == nil {
		werr = cw.WriteAll(body)
	}
	if cerr := file.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write output file: %w", werr)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}

// FileName is the output file for a table: <table>[_geo][_moe].csv.
func FileName(table string, geo, moe bool) string {
	name := table
	if geo {
		name += "_geo"
	}
	if moe {
		name += "_moe"
	}
	return name + ".csv"
}
