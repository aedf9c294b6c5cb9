// Package dataset reads the tabular recipe and interaction files into
// in-memory tables addressed by column name.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/WessleyAI/recipe-recommender/engine/domain"
)

// Table is a header plus string rows, read once and never mutated.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	cols   map[string]int
}

// Open reads the CSV file at path. The table is named after the path.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(path, f)
}

// Read parses CSV with a header row from r. Short rows are tolerated;
// missing trailing cells read as absent.
func Read(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dataset: %s: %w", name, domain.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: read header: %w", name, err)
	}

	t := &Table{Name: name, Header: make([]string, len(header)), cols: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.cols[h]; !dup {
			t.cols[h] = i
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %s: read row %d: %w", name, len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the header contains col.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Require returns a *domain.ColumnError for the first absent column.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return &domain.ColumnError{Table: t.Name, Column: c}
		}
	}
	return nil
}

// Value returns the cell of row i in column col. ok is false when the
// column does not exist, the row is too short, or the cell is empty.
func (t *Table) Value(i int, col string) (v string, ok bool) {
	idx, found := t.cols[col]
	if !found || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	row := t.Rows[i]
	if idx >= len(row) {
		return "", false
	}
	v = strings.TrimSpace(row[idx])
	return v, v != ""
}
