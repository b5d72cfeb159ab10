package table

import (
	"fmt"
	"math"
	"sort"
)

// ColumnKind distinguishes numeric from text columns
type ColumnKind int

const (
	KindNumeric ColumnKind = iota
	KindText
)

// Column is one named, typed column. Missing numeric cells are NaN,
// missing text cells are "".
type Column struct {
	Name    string
	Kind    ColumnKind
	Numeric []float64
	Text    []string
}

// Len returns the number of cells
func (c *Column) Len() int {
	if c.Kind == KindText {
		return len(c.Text)
	}
	return len(c.Numeric)
}

// AllMissing reports whether no cell carries a value
func (c *Column) AllMissing() bool {
	if c.Kind == KindText {
		for _, v := range c.Text {
			if v != "" {
				return false
			}
		}
		return true
	}
	for _, v := range c.Numeric {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Numeric != nil {
		out.Numeric = append([]float64(nil), c.Numeric...)
	}
	if c.Text != nil {
		out.Text = append([]string(nil), c.Text...)
	}
	return out
}

// Frame is a small column-oriented table. All columns share the same length.
type Frame struct {
	columns []*Column
	index   map[string]int
}

// NewFrame returns an empty frame
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// NumRows returns the shared column length (0 for a frame without columns)
func (f *Frame) NumRows() int {
	if f == nil || len(f.columns) == 0 {
		return 0
	}
	return f.columns[0].Len()
}

// NumColumns returns the column count
func (f *Frame) NumColumns() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

// Empty reports whether the frame has no rows
func (f *Frame) Empty() bool { return f.NumRows() == 0 }

// Names returns column names in insertion order
func (f *Frame) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in insertion order
func (f *Frame) Columns() []*Column {
	if f == nil {
		return nil
	}
	return f.columns
}

// Column looks up a column by name
func (f *Frame) Column(name string) (*Column, bool) {
	if f == nil {
		return nil, false
	}
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

func (f *Frame) add(col *Column) error {
	if _, dup := f.index[col.Name]; dup {
		return fmt.Errorf("duplicate column %q", col.Name)
	}
	if len(f.columns) > 0 && col.Len() != f.NumRows() {
		return fmt.Errorf("column %q has %d rows, frame has %d", col.Name, col.Len(), f.NumRows())
	}
	f.index[col.Name] = len(f.columns)
	f.columns = append(f.columns, col)
	return nil
}

// AddNumeric appends a numeric column. The slice is copied.
func (f *Frame) AddNumeric(name string, values []float64) error {
	return f.add(&Column{Name: name, Kind: KindNumeric, Numeric: append([]float64{}, values...)})
}

// AddText appends a text column. The slice is copied.
func (f *Frame) AddText(name string, values []string) error {
	return f.add(&Column{Name: name, Kind: KindText, Text: append([]string{}, values...)})
}

// Clone deep-copies the frame
func (f *Frame) Clone() *Frame {
	out := NewFrame()
	if f == nil {
		return out
	}
	for _, c := range f.columns {
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.clone())
	}
	return out
}

// DropRows returns a copy without the rows for which drop returns true
func (f *Frame) DropRows(drop func(row int) bool) *Frame {
	out := NewFrame()
	if f == nil {
		return out
	}
	keep := make([]int, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		if !drop(i) {
			keep = append(keep, i)
		}
	}
	for _, c := range f.columns {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindText {
			nc.Text = make([]string, len(keep))
			for j, i := range keep {
				nc.Text[j] = c.Text[i]
			}
		} else {
			nc.Numeric = make([]float64, len(keep))
			for j, i := range keep {
				nc.Numeric[j] = c.Numeric[i]
			}
		}
		out.index[nc.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	return out
}

// DropEmptyColumns returns a copy without columns whose cells are all missing.
// Columns listed in keep survive regardless.
func (f *Frame) DropEmptyColumns(keep ...string) *Frame {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}
	out := NewFrame()
	for _, c := range f.Columns() {
		if c.AllMissing() && !keepSet[c.Name] {
			continue
		}
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.clone())
	}
	return out
}

// JoinOn outer-joins other onto f by matching the numeric column key of f
// with the numeric column otherKey of other. Columns of f keep their values;
// columns of other that f lacks are appended. Rows of other without a match
// are appended with their key copied into key. Repeated keys pair up in row
// order and rows of other with a missing key are ignored.
func (f *Frame) JoinOn(key string, other *Frame, otherKey string) (*Frame, error) {
	left, ok := f.Column(key)
	if !ok || left.Kind != KindNumeric {
		return nil, fmt.Errorf("numeric column %q not found", key)
	}
	right, ok := other.Column(otherKey)
	if !ok || right.Kind != KindNumeric {
		return nil, fmt.Errorf("numeric column %q not found", otherKey)
	}

	pending := map[float64][]int{}
	for i, v := range left.Numeric {
		if !math.IsNaN(v) {
			pending[v] = append(pending[v], i)
		}
	}
	base := f.NumRows()
	rows := base
	target := make([]int, len(right.Numeric))
	for j, v := range right.Numeric {
		switch {
		case math.IsNaN(v):
			target[j] = -1
		case len(pending[v]) > 0:
			target[j] = pending[v][0]
			pending[v] = pending[v][1:]
		default:
			target[j] = rows
			rows++
		}
	}

	out := NewFrame()
	for _, c := range f.columns {
		nc := c.padded(rows)
		if c.Name == key {
			for j, row := range target {
				if row >= base {
					nc.Numeric[row] = right.Numeric[j]
				}
			}
		}
		out.index[nc.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	for _, c := range other.columns {
		if _, dup := out.index[c.Name]; dup || c.Name == otherKey {
			continue
		}
		nc := (&Column{Name: c.Name, Kind: c.Kind}).padded(rows)
		for j, row := range target {
			if row < 0 {
				continue
			}
			if c.Kind == KindText {
				nc.Text[row] = c.Text[j]
			} else {
				nc.Numeric[row] = c.Numeric[j]
			}
		}
		out.index[nc.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	return out, nil
}

// padded copies c into a column of n cells, filling the tail with missing values
func (c *Column) padded(n int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == KindText {
		out.Text = make([]string, n)
		copy(out.Text, c.Text)
		return out
	}
	out.Numeric = make([]float64, n)
	copy(out.Numeric, c.Numeric)
	for i := len(c.Numeric); i < n; i++ {
		out.Numeric[i] = math.NaN()
	}
	return out
}

// SortBy returns a copy ordered by a numeric column, NaN last. The sort is stable.
func (f *Frame) SortBy(name string) (*Frame, error) {
	col, ok := f.Column(name)
	if !ok || col.Kind != KindNumeric {
		return nil, fmt.Errorf("numeric column %q not found", name)
	}
	order := make([]int, f.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := col.Numeric[order[a]], col.Numeric[order[b]]
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		return va < vb
	})

	out := NewFrame()
	for _, c := range f.columns {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindText {
			nc.Text = make([]string, len(order))
			for j, i := range order {
				nc.Text[j] = c.Text[i]
			}
		} else {
			nc.Numeric = make([]float64, len(order))
			for j, i := range order {
				nc.Numeric[j] = c.Numeric[i]
			}
		}
		out.index[nc.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	return out, nil
}

// HasData reports whether at least one column other than the excluded ones
// carries a non-missing value.
func (f *Frame) HasData(exclude ...string) bool {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	for _, c := range f.Columns() {
		if skip[c.Name] {
			continue
		}
		if !c.AllMissing() {
			return true
		}
	}
	return false
}

// Cell renders one cell as text, "" for missing values
func (f *Frame) Cell(col *Column, row int) string {
	if col.Kind == KindText {
		return col.Text[row]
	}
	v := col.Numeric[row]
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
