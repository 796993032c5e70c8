// Package crosswalk builds the two lookups that place a census tract in its
// community area: tract id to area id, and area id to area name.
package crosswalk

import (
	"fmt"

	"commareas/internal/tablefile"
	"commareas/internal/types"
)

// Fixed column names of the area-id to name table.
const (
	AreaNumberField = "Community Area Number"
	AreaNameField   = "COMMUNITY AREA NAME"
)

// Default column names of the tract to area table (2010 TIGER tracts export).
const (
	DefaultTractField = "TRACTCE10"
	DefaultAreaField  = "COMMAREA"
)

// Fields names the columns read from the tract to area table.
type Fields struct {
	Tract string
	Area  string
}

// DefaultFields returns the TIGER 2010 column names.
func DefaultFields() Fields {
	return Fields{Tract: DefaultTractField, Area: DefaultAreaField}
}

// TractArea is one row of the tract to area table.
type TractArea struct {
	Tract string
	Area  string
}

// AreaLabel is one row of the area-id to name table.
type AreaLabel struct {
	Area string
	Name string
}

// Crosswalk is read-only after Build.
type Crosswalk struct {
	tractToArea map[types.TractID]types.AreaID
	areaNames   map[types.AreaID]types.AreaName
}

// Build normalizes every tract code and indexes both tables. A malformed
// tract code fails the whole build. When a tract or area repeats, the later
// row wins.
func Build(tracts []TractArea, names []AreaLabel) (*Crosswalk, error) {
	xw := &Crosswalk{
		tractToArea: make(map[types.TractID]types.AreaID, len(tracts)),
		areaNames:   make(map[types.AreaID]types.AreaName, len(names)),
	}
	for i, row := range tracts {
		tract, err := types.NormalizeTract(row.Tract)
		if err != nil {
			return nil, fmt.Errorf("tract table row %d: %w", i+1, err)
		}
		xw.tractToArea[tract] = types.AreaID(row.Area)
	}
	for _, row := range names {
		xw.areaNames[types.AreaID(row.Area)] = types.AreaName(row.Name)
	}
	return xw, nil
}

// Area returns the community area that owns tract.
func (x *Crosswalk) Area(tract types.TractID) (types.AreaID, bool) {
	id, ok := x.tractToArea[tract]
	return id, ok
}

// Name returns the name of an area.
func (x *Crosswalk) Name(id types.AreaID) (types.AreaName, bool) {
	name, ok := x.areaNames[id]
	return name, ok
}

// Len returns the number of tracts and named areas.
func (x *Crosswalk) Len() (tracts, areas int) {
	return len(x.tractToArea), len(x.areaNames)
}

// TractAreasFromRecords pulls the configured fields out of generic table records.
func TractAreasFromRecords(records []tablefile.Record, fields Fields) ([]TractArea, error) {
	out := make([]TractArea, 0, len(records))
	for i, rec := range records {
		tract, ok := rec[fields.Tract]
		if !ok {
			return nil, fmt.Errorf("tract table row %d: missing column %q", i+1, fields.Tract)
		}
		area, ok := rec[fields.Area]
		if !ok {
			return nil, fmt.Errorf("tract table row %d: missing column %q", i+1, fields.Area)
		}
		out = append(out, TractArea{Tract: tract, Area: area})
	}
	return out, nil
}

// AreaLabelsFromRecords reads the fixed area number and name columns.
func AreaLabelsFromRecords(records []tablefile.Record) ([]AreaLabel, error) {
	out := make([]AreaLabel, 0, len(records))
	for i, rec := range records {
		area, ok := rec[AreaNumberField]
		if !ok {
			return nil, fmt.Errorf("area table row %d: missing column %q", i+1, AreaNumberField)
		}
		out = append(out, AreaLabel{Area: area, Name: rec[AreaNameField]})
	}
	return out, nil
}

// LoadFiles builds the crosswalk from the two CSV exports.
func LoadFiles(tractPath, namesPath string, fields Fields) (*Crosswalk, error) {
	tractRecords, err := tablefile.ReadAll(tractPath, tablefile.Options{})
	if err != nil {
		return nil, fmt.Errorf("load tract table: %w", err)
	}
	tracts, err := TractAreasFromRecords(tractRecords, fields)
	if err != nil {
		return nil, err
	}

	nameRecords, err := tablefile.ReadAll(namesPath, tablefile.Options{})
	if err != nil {
		return nil, fmt.Errorf("load area names: %w", err)
	}
	names, err := AreaLabelsFromRecords(nameRecords)
	if err != nil {
		return nil, err
	}

	return Build(tracts, names)
}
