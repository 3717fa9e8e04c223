// Package dataset implements the CSV-driven corpus operations: singer
// identifier assignment, train/test/exp splitting, verification pair
// generation, and directory-name hashing.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

// ErrColumnNotFound is returned when a named CSV column is absent.
var ErrColumnNotFound = errors.New("dataset: column not found")

// Table is a CSV file held in memory: a header row plus data rows.
// The dataset CSVs are small relative to the audio they describe, so
// whole-file loading is fine.
type Table struct {
	Header []string
	Rows   [][]string
}

// LoadTable reads a CSV file with a header row.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows, pad on access

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv %s: no header row", path)
	}

	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Save writes the table back to path, replacing the file.
func (t *Table) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return nil
}

// ColumnIndex returns the index of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// EnsureColumn returns the index of the named column, appending it (and
// padding every row) if absent.
func (t *Table) EnsureColumn(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

// Get returns the cell at (row, col), or "" when the row is shorter than
// the header.
func (t *Table) Get(row, col int) string {
	if col < len(t.Rows[row]) {
		return t.Rows[row][col]
	}
	return ""
}

// Set writes the cell at (row, col), padding the row if needed.
func (t *Table) Set(row, col int, value string) {
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
