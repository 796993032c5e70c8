// Package geometry looks up a community area's boundary by area id.
package geometry

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"commareas/internal/tablefile"
	"commareas/internal/types"
)

// Column names of the community area boundaries export.
const (
	DefaultIDField       = "AREA_NUMBE"
	DefaultGeometryField = "the_geom"
)

// Index maps an area id to its geometry as WKT. The first geometry added for
// an id wins.
type Index struct {
	byArea map[types.AreaID]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byArea: make(map[types.AreaID]string)}
}

// Add records geometry for id unless one is already present. It reports
// whether the geometry was stored.
func (ix *Index) Add(id types.AreaID, wkt string) bool {
	if _, ok := ix.byArea[id]; ok {
		return false
	}
	ix.byArea[id] = wkt
	return true
}

// Lookup returns the geometry for id.
func (ix *Index) Lookup(id types.AreaID) (string, bool) {
	wkt, ok := ix.byArea[id]
	return wkt, ok
}

// Len returns the number of areas with geometry.
func (ix *Index) Len() int {
	return len(ix.byArea)
}

// Load reads boundaries from a shapefile when path ends in .shp, otherwise
// from a CSV with an id column and a WKT geometry column.
func Load(path, idField, geomField string) (*Index, error) {
	if idField == "" {
		idField = DefaultIDField
	}
	if geomField == "" {
		geomField = DefaultGeometryField
	}
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return LoadShapefile(path, idField)
	}
	return LoadCSV(path, idField, geomField)
}

// LoadCSV reads the data portal boundaries export.
func LoadCSV(path, idField, geomField string) (*Index, error) {
	ix := NewIndex()
	err := tablefile.ReadFile(path, tablefile.Options{}, func(rec tablefile.Record) error {
		id, ok := rec[idField]
		if !ok {
			return fmt.Errorf("missing column %q", idField)
		}
		geom, ok := rec[geomField]
		if !ok {
			return fmt.Errorf("missing column %q", geomField)
		}
		ix.Add(NormalizeID(id), geom)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load geometry: %w", err)
	}
	return ix, nil
}

// NormalizeID trims an id and drops a zero fraction, so a DBF numeric "14.0"
// matches the crosswalk's "14".
func NormalizeID(raw string) types.AreaID {
	id := strings.TrimSpace(raw)
	if strings.Contains(id, ".") {
		if f, err := strconv.ParseFloat(id, 64); err == nil && f == math.Trunc(f) {
			return types.AreaID(strconv.FormatInt(int64(f), 10))
		}
	}
	return types.AreaID(id)
}
