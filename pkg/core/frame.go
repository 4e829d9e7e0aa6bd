package core

import "fmt"

// Frame is an ordered set of rows with named columns.
// It is the row set exchanged between feature stores and the engine.
type Frame struct {
	Columns []string
	Rows    [][]any

	// Types optionally declares SQL types for columns, used when a column
	// holds no non-nil value to infer from.
	Types map[string]string
}

// NewFrame creates an empty frame with the given columns.
func NewFrame(columns ...string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols}
}

// Append adds a row. The number of values must match the number of columns.
func (f *Frame) Append(values ...any) error {
	if len(values) != len(f.Columns) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.Columns))
	}
	row := make([]any, len(values))
	copy(row, values)
	f.Rows = append(f.Rows, row)
	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of a column, or -1 if absent.
func (f *Frame) Index(column string) int {
	for i, c := range f.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Missing returns the subset of columns not present in the frame, in input order.
func (f *Frame) Missing(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if f.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}

// Value returns the value of column in row i, or nil if the column is absent.
func (f *Frame) Value(i int, column string) any {
	idx := f.Index(column)
	if idx < 0 || i < 0 || i >= len(f.Rows) {
		return nil
	}
	return f.Rows[i][idx]
}

// Select projects the frame onto the given columns, in the given order.
// Returns a SchemaError naming view when a column is absent.
func (f *Frame) Select(view string, columns ...string) (*Frame, error) {
	if missing := f.Missing(columns); len(missing) > 0 {
		return nil, &SchemaError{FeatureView: view, Missing: missing, Available: f.Columns}
	}

	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.Index(c)
	}

	out := NewFrame(columns...)
	for _, c := range columns {
		if t, ok := f.Types[c]; ok {
			if out.Types == nil {
				out.Types = make(map[string]string)
			}
			out.Types[c] = t
		}
	}
	out.Rows = make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		projected := make([]any, len(idx))
		for i, j := range idx {
			projected[i] = row[j]
		}
		out.Rows[r] = projected
	}
	return out, nil
}
