// Package rollup turns per-tract observations into one value per community
// area. Estimates are summed; margins of error are combined as the square
// root of the sum of squares. Percentages are not additive across
// geographies and are refused.
package rollup

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"commareas/internal/types"
)

// ErrUnsupportedVariableType is returned for percent variables and for codes
// with an unrecognized suffix.
var ErrUnsupportedVariableType = errors.New("unsupported variable type")

// Check fails on the first code that Rollup would refuse. Call it before any
// data is requested.
func Check(codes []types.VariableCode) error {
	for _, code := range codes {
		if err := supported(code); err != nil {
			return err
		}
	}
	return nil
}

func supported(code types.VariableCode) error {
	if code.IsPercent() {
		return fmt.Errorf("%w: %s is measured in percent and cannot be aggregated", ErrUnsupportedVariableType, code)
	}
	switch code.Kind() {
	case types.KindEstimate, types.KindMarginOfError:
		return nil
	}
	return fmt.Errorf("%w: %s has an unrecognized suffix", ErrUnsupportedVariableType, code)
}

// Rollup computes the area value for one variable. An empty tract map is
// NoData, never zero.
func Rollup(code types.VariableCode, tracts types.TractValues) (types.Value, error) {
	if err := supported(code); err != nil {
		return types.NoData(), err
	}
	if len(tracts) == 0 {
		return types.NoData(), nil
	}
	if code.Kind() == types.KindMarginOfError {
		return types.Some(rss(tracts)), nil
	}

	var sum int64
	for _, v := range tracts {
		sum += v
	}
	return types.Some(sum), nil
}

// rss is round(sqrt(sum of squares)), rounding half away from zero.
func rss(tracts types.TractValues) int64 {
	var sq float64
	for _, v := range tracts {
		f := float64(v)
		sq += f * f
	}
	return int64(math.Round(math.Sqrt(sq)))
}

// Areas rolls up every area for every code. Any unsupported code aborts the
// whole table before a single row is produced. Rows come back sorted by area
// name.
func Areas(areas map[types.AreaID]*types.AreaAggregate, codes []types.VariableCode) ([]types.RolledUpRow, error) {
	if err := Check(codes); err != nil {
		return nil, err
	}

	rows := make([]types.RolledUpRow, 0, len(areas))
	for _, agg := range areas {
		row := types.RolledUpRow{
			ID:     agg.ID,
			Name:   agg.Name,
			Values: make(map[types.VariableCode]types.Value, len(codes)),
		}
		for _, code := range codes {
			v, err := Rollup(code, agg.Variables[code])
			if err != nil {
				return nil, fmt.Errorf("area %s: %w", agg.Name, err)
			}
			row.Values[code] = v
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b types.RolledUpRow) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return rows, nil
}
