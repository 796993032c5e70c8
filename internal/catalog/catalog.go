// Package catalog holds the variable metadata lookup and splits a table's
// variables into batches the Census API will accept in a single request.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"commareas/internal/tablefile"
	"commareas/internal/types"
)

// DefaultMaxBatchSize is one under the API's 50-variable limit; NAME takes a slot.
const DefaultMaxBatchSize = 49

// ErrInvalidBatchSize is returned when the batch cap is below one.
var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// Columns of the variables export from the API documentation.
const (
	nameField  = "Name"
	labelField = "Label"
)

// Catalog maps a variable code to its human-readable label.
type Catalog map[types.VariableCode]string

// Label returns the label for code, falling back to the code itself.
func (c Catalog) Label(code types.VariableCode) (string, bool) {
	label, ok := c[code]
	if !ok {
		return string(code), false
	}
	return label, true
}

// Load reads the variables CSV. Labels are "Name: Label", the way they
// appear as output column headers.
func Load(path string) (Catalog, error) {
	cat := make(Catalog)
	err := tablefile.ReadFile(path, tablefile.Options{}, func(rec tablefile.Record) error {
		name := rec[nameField]
		if name == "" {
			return nil
		}
		cat[types.VariableCode(name)] = name + ": " + rec[labelField]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load variable metadata: %w", err)
	}
	return cat, nil
}

// Options controls batching.
type Options struct {
	IncludeMOE   bool
	MaxBatchSize int
}

// Batch returns the table's variable codes in sorted order, split into
// batches of at most opts.MaxBatchSize codes. Margin-of-error codes are
// dropped unless opts.IncludeMOE is set. A table with no matching codes
// yields no batches.
func Batch(prefix string, cat Catalog, opts Options) ([][]types.VariableCode, error) {
	if opts.MaxBatchSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, opts.MaxBatchSize)
	}

	var codes []types.VariableCode
	for code := range cat {
		if !code.InTable(prefix) {
			continue
		}
		if !opts.IncludeMOE && code.IsMarginOfError() {
			continue
		}
		codes = append(codes, code)
	}
	slices.Sort(codes)

	var batches [][]types.VariableCode
	for start := 0; start < len(codes); start += opts.MaxBatchSize {
		end := min(start+opts.MaxBatchSize, len(codes))
		batches = append(batches, codes[start:end:end])
	}
	return batches, nil
}

// Join renders a batch the way the API expects it in the get parameter.
func Join(batch []types.VariableCode) string {
	parts := make([]string, len(batch))
	for i, code := range batch {
		parts[i] = string(code)
	}
	return strings.Join(parts, ",")
}
