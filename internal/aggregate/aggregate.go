// Package aggregate folds tract-level API payloads into per-community-area
// structures, keeping each tract's value until rollup.
package aggregate

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"commareas/internal/types"
)

// tractField is the geography column the API appends to every row.
const tractField = "tract"

var (
	// ErrMalformedPayload is returned for a payload without a header or tract column.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidValue is returned when a non-null cell is not an integer.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnnamedArea is returned when a tract maps to an area missing from the name table.
	ErrUnnamedArea = errors.New("community area has no name")
)

// Crosswalk resolves tracts to community areas.
type Crosswalk interface {
	Area(types.TractID) (types.AreaID, bool)
	Name(types.AreaID) (types.AreaName, bool)
}

// Stats counts what happened to the rows seen so far.
type Stats struct {
	Payloads   int
	Rows       int
	OutOfScope int
	Nulls      int
}

// Result is the engine's output.
type Result struct {
	Areas     map[types.AreaID]*types.AreaAggregate
	Variables []types.VariableCode
	Stats     Stats
}

// Engine accumulates payloads for one run. It is not safe for concurrent use;
// payloads are meant to be added one at a time in request order.
type Engine struct {
	crosswalk Crosswalk
	prefix    string
	logger    zerolog.Logger

	areas     map[types.AreaID]*types.AreaAggregate
	variables map[types.VariableCode]struct{}
	stats     Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped rows.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine for the table with the given prefix.
func NewEngine(xw Crosswalk, prefix string, opts ...Option) *Engine {
	e := &Engine{
		crosswalk: xw,
		prefix:    prefix,
		logger:    zerolog.Nop(),
		areas:     make(map[types.AreaID]*types.AreaAggregate),
		variables: make(map[types.VariableCode]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add folds one payload into the accumulator. Rows for tracts outside the
// crosswalk are skipped; null cells are left out rather than counted as zero.
func (e *Engine) Add(payload types.Payload) error {
	header := payload.Header()
	if header == nil {
		return fmt.Errorf("%w: no header row", ErrMalformedPayload)
	}
	if !slices.Contains(header, tractField) {
		return fmt.Errorf("%w: header has no %q column", ErrMalformedPayload, tractField)
	}

	// The table's columns are recovered from the header itself, so the order
	// the transport returns them in does not matter.
	var columns []types.VariableCode
	for _, name := range header {
		code := types.VariableCode(name)
		if code.InTable(e.prefix) {
			columns = append(columns, code)
			e.variables[code] = struct{}{}
		}
	}

	for n, row := range payload.Rows() {
		e.stats.Rows++
		record := make(map[string]*string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}

		tract := types.TractID(deref(record[tractField]))
		areaID, ok := e.crosswalk.Area(tract)
		if !ok {
			e.stats.OutOfScope++
			e.logger.Debug().Str("tract", string(tract)).Msg("tract outside crosswalk, skipping")
			continue
		}
		name, ok := e.crosswalk.Name(areaID)
		if !ok {
			return fmt.Errorf("%w: area %q (tract %s)", ErrUnnamedArea, areaID, tract)
		}

		agg, ok := e.areas[areaID]
		if !ok {
			agg = types.NewAreaAggregate(areaID, name)
			e.areas[areaID] = agg
		}

		for _, code := range columns {
			tracts := agg.Tracts(code)
			raw := strings.TrimSpace(deref(record[string(code)]))
			if raw == "" {
				e.stats.Nulls++
				continue
			}
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: row %d column %s: %q", ErrInvalidValue, n+1, code, raw)
			}
			tracts[tract] = v
		}
	}

	e.stats.Payloads++
	return nil
}

// Result returns the accumulated areas and the sorted set of every variable
// seen in any payload header.
func (e *Engine) Result() *Result {
	vars := make([]types.VariableCode, 0, len(e.variables))
	for code := range e.variables {
		vars = append(vars, code)
	}
	slices.Sort(vars)
	return &Result{
		Areas:     e.areas,
		Variables: vars,
		Stats:     e.stats,
	}
}

// Aggregate folds all payloads in order.
func Aggregate(payloads []types.Payload, xw Crosswalk, prefix string) (*Result, error) {
	e := NewEngine(xw, prefix)
	for i, p := range payloads {
		if err := e.Add(p); err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
	}
	return e.Result(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
