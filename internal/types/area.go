package types

import "strconv"

// NA is how missing values are written to output files.
const NA = "NA"

// Payload is one API response: row 0 holds the column headers, every
// following row is one tract. Cells are nil when the API returned null.
type Payload [][]*string

// Header returns the column names, or nil for an empty payload.
func (p Payload) Header() []string {
	if len(p) == 0 {
		return nil
	}
	header := make([]string, len(p[0]))
	for i, cell := range p[0] {
		if cell != nil {
			header[i] = *cell
		}
	}
	return header
}

// Rows returns the data rows following the header.
func (p Payload) Rows() [][]*string {
	if len(p) < 2 {
		return nil
	}
	return p[1:]
}

// TractValues holds one variable's observations for an area, keyed by tract.
type TractValues map[TractID]int64

// AreaAggregate accumulates tract-level values for a single community area.
type AreaAggregate struct {
	ID        AreaID
	Name      AreaName
	Variables map[VariableCode]TractValues
}

// NewAreaAggregate returns an empty aggregate for the area.
func NewAreaAggregate(id AreaID, name AreaName) *AreaAggregate {
	return &AreaAggregate{
		ID:        id,
		Name:      name,
		Variables: make(map[VariableCode]TractValues),
	}
}

// Tracts returns the per-tract map for code, creating it when absent.
func (a *AreaAggregate) Tracts(code VariableCode) TractValues {
	tv, ok := a.Variables[code]
	if !ok {
		tv = make(TractValues)
		a.Variables[code] = tv
	}
	return tv
}

// Value is a rolled-up scalar that may be absent. The zero Value is NoData.
type Value struct {
	n     int64
	valid bool
}

// NoData is the result for a variable with no observations.
func NoData() Value { return Value{} }

// Some wraps a computed value.
func Some(n int64) Value { return Value{n: n, valid: true} }

// Get returns the value and whether one is present.
func (v Value) Get() (int64, bool) { return v.n, v.valid }

// Valid reports whether the value is present.
func (v Value) Valid() bool { return v.valid }

// Format renders the value for output. With zeroAsNA set a legitimate zero is
// written as NA too, which is how the files have always looked.
func (v Value) Format(zeroAsNA bool) string {
	if !v.valid || (zeroAsNA && v.n == 0) {
		return NA
	}
	return strconv.FormatInt(v.n, 10)
}

func (v Value) String() string { return v.Format(false) }

// RolledUpRow is one community area's final record.
type RolledUpRow struct {
	ID       AreaID
	Name     AreaName
	Values   map[VariableCode]Value
	Geometry string
}
