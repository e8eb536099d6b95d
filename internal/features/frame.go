package features

import (
	"fmt"
	"slices"
)

// column is either numeric or text; exactly one slice is set
type column struct {
	name string
	num  []float64
	text []string
}

// Frame is a small column-oriented table with ordered, named columns
type Frame struct {
	cols  []column
	index map[string]int
	rows  int
}

// NewFrame returns an empty frame with the given number of rows
func NewFrame(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

// Rows returns the row count
func (f *Frame) Rows() int {
	return f.rows
}

// Columns returns the column names in order
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.name
	}
	return names
}

func (f *Frame) add(c column, n int) error {
	if n != f.rows {
		return fmt.Errorf("column %s has %d rows, frame has %d", c.name, n, f.rows)
	}
	if _, dup := f.index[c.name]; dup {
		return fmt.Errorf("duplicate column %s", c.name)
	}
	f.index[c.name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// AddNumeric appends a numeric column
func (f *Frame) AddNumeric(name string, values []float64) error {
	return f.add(column{name: name, num: values}, len(values))
}

// AddText appends a text column
func (f *Frame) AddText(name string, values []string) error {
	return f.add(column{name: name, text: values}, len(values))
}

// Numeric returns the values of a numeric column
func (f *Frame) Numeric(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok || f.cols[i].num == nil {
		return nil, false
	}
	return f.cols[i].num, true
}

// Rename relabels columns; names absent from the frame are ignored
func (f *Frame) Rename(names map[string]string) error {
	for i := range f.cols {
		to, ok := names[f.cols[i].name]
		if !ok {
			continue
		}
		if j, exists := f.index[to]; exists && j != i {
			return fmt.Errorf("rename %s: column %s already exists", f.cols[i].name, to)
		}
		delete(f.index, f.cols[i].name)
		f.cols[i].name = to
		f.index[to] = i
	}
	return nil
}

// Drop removes the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) error {
	for _, name := range names {
		if _, ok := f.index[name]; !ok {
			return fmt.Errorf("drop: no column %s", name)
		}
	}
	f.cols = slices.DeleteFunc(f.cols, func(c column) bool {
		return slices.Contains(names, c.name)
	})
	f.index = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.index[c.name] = i
	}
	return nil
}

// Row extracts row i as an encoded row. Text columns are not allowed.
func (f *Frame) Row(i int) (EncodedRow, error) {
	if i < 0 || i >= f.rows {
		return EncodedRow{}, fmt.Errorf("row %d out of range [0,%d)", i, f.rows)
	}

	row := EncodedRow{
		Columns: make([]string, len(f.cols)),
		Values:  make([]float64, len(f.cols)),
	}
	for j, c := range f.cols {
		if c.num == nil {
			return EncodedRow{}, fmt.Errorf("column %s is not numeric", c.name)
		}
		row.Columns[j] = c.name
		row.Values[j] = c.num[i]
	}
	return row, nil
}

// EncodedRow is one fully encoded feature row
type EncodedRow struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Get returns the value of a named column
func (r EncodedRow) Get(name string) (float64, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Map returns the row keyed by column name
func (r EncodedRow) Map() map[string]float64 {
	m := make(map[string]float64, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}
