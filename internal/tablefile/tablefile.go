// Package tablefile reads delimited lookup tables with a header row.
package tablefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// utf8BOM is stripped from the first header cell; data portal exports often carry one.
const utf8BOM = "\ufeff"

// Record is one data row keyed by header name.
type Record map[string]string

// Options controls how a table is parsed.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// ReadFile opens path and calls fn for each record in file order.
func ReadFile(path string, opts Options, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Read(f, opts, fn); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Read iterates through a delimited stream with a header row, calling fn for
// each record. Values are trimmed; short rows leave trailing fields empty.
// Reading stops at the first error returned by fn.
func Read(r io.Reader, opts Options, fn func(Record) error) error {
	return scan(r, opts, func(header, cols []string) error {
		rec := make(Record, len(header))
		for j, h := range header {
			rec[h] = cols[j]
		}
		return fn(rec)
	})
}

// ReadRows returns the header and every row of the file in column order, each
// row padded to the header's width.
func ReadRows(path string, opts Options) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var (
		header []string
		rows   [][]string
	)
	err = scan(f, opts, func(h, cols []string) error {
		header = h
		rows = append(rows, cols)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return header, rows, nil
}

// scan calls fn with the cleaned header and each trimmed, padded row.
func scan(r io.Reader, opts Options, fn func(header, cols []string) error) error {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("table is empty")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	for {
		raw, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		cols := make([]string, len(header))
		for j := range cols {
			if j < len(raw) {
				cols[j] = strings.TrimSpace(raw[j])
			}
		}
		if err := fn(header, cols); err != nil {
			return err
		}
	}
}

// ReadAll collects every record of the file.
func ReadAll(path string, opts Options) ([]Record, error) {
	var records []Record
	err := ReadFile(path, opts, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}
