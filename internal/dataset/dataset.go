// Package dataset holds the in-memory table model every pipeline stage
// operates on: ordered named columns of typed cells.
package dataset

import (
	"fmt"
	"sort"
)

// Column is a named sequence of cells. All columns in a Dataset share the
// same length.
type Column struct {
	Name  string
	Cells []Value
}

// Dataset is an ordered collection of uniquely named columns. Column order
// is stable unless explicitly reordered; all mutation goes through methods
// that keep column lengths aligned.
type Dataset struct {
	cols []Column
}

// New builds an empty dataset with the given column names.
// Duplicate names are rejected.
func New(names ...string) (*Dataset, error) {
	d := &Dataset{}
	for _, n := range names {
		if err := d.AddColumn(n, nil); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dataset) NumRows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return len(d.cols[0].Cells)
}

func (d *Dataset) NumCols() int { return len(d.cols) }

func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex resolves a column name to its position, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the column with the given name.
func (d *Dataset) Column(name string) (*Column, bool) {
	if i := d.ColumnIndex(name); i >= 0 {
		return &d.cols[i], true
	}
	return nil, false
}

// ColumnAt returns the column at position i.
func (d *Dataset) ColumnAt(i int) *Column { return &d.cols[i] }

// Cell returns the value at (row, column name). Out-of-range lookups are
// reported via ok=false rather than panicking.
func (d *Dataset) Cell(row int, name string) (Value, bool) {
	i := d.ColumnIndex(name)
	if i < 0 || row < 0 || row >= d.NumRows() {
		return Missing(), false
	}
	return d.cols[i].Cells[row], true
}

func (d *Dataset) SetCell(row int, name string, v Value) error {
	i := d.ColumnIndex(name)
	if i < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	if row < 0 || row >= d.NumRows() {
		return fmt.Errorf("row %d out of range (rows=%d)", row, d.NumRows())
	}
	d.cols[i].Cells[row] = v
	return nil
}

// AddColumn appends a column. If cells is shorter than the current row
// count it is padded with missing values; if the dataset is empty the
// column defines the row count.
func (d *Dataset) AddColumn(name string, cells []Value) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if d.ColumnIndex(name) >= 0 {
		return fmt.Errorf("column %q already exists", name)
	}
	rows := d.NumRows()
	if len(d.cols) == 0 {
		rows = len(cells)
	}
	if len(cells) > rows {
		return fmt.Errorf("column %q has %d cells, dataset has %d rows", name, len(cells), rows)
	}
	padded := make([]Value, rows)
	copy(padded, cells)
	d.cols = append(d.cols, Column{Name: name, Cells: padded})
	return nil
}

func (d *Dataset) DeleteColumn(name string) error {
	i := d.ColumnIndex(name)
	if i < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	d.cols = append(d.cols[:i], d.cols[i+1:]...)
	return nil
}

func (d *Dataset) RenameColumn(oldName, newName string) error {
	i := d.ColumnIndex(oldName)
	if i < 0 {
		return fmt.Errorf("column %q not found", oldName)
	}
	if newName == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if j := d.ColumnIndex(newName); j >= 0 && j != i {
		return fmt.Errorf("column %q already exists", newName)
	}
	d.cols[i].Name = newName
	return nil
}

// Row returns a copy of row i in column order.
func (d *Dataset) Row(i int) []Value {
	out := make([]Value, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Cells[i]
	}
	return out
}

// AppendRow adds a row given as a column-name keyed map. Columns absent
// from the map receive missing values.
func (d *Dataset) AppendRow(values map[string]Value) error {
	for name := range values {
		if d.ColumnIndex(name) < 0 {
			return fmt.Errorf("column %q not found", name)
		}
	}
	for i := range d.cols {
		d.cols[i].Cells = append(d.cols[i].Cells, values[d.cols[i].Name])
	}
	return nil
}

// DeleteRows removes the given row indices. Out-of-range indices are
// ignored.
func (d *Dataset) DeleteRows(indices []int) {
	if len(indices) == 0 {
		return
	}
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < d.NumRows() {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	for c := range d.cols {
		kept := d.cols[c].Cells[:0]
		for i, v := range d.cols[c].Cells {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		d.cols[c].Cells = kept
	}
}

// SelectRows builds a new dataset containing the given rows, in the order
// provided. Every column is carried over.
func (d *Dataset) SelectRows(indices []int) *Dataset {
	out := &Dataset{cols: make([]Column, len(d.cols))}
	for c, col := range d.cols {
		cells := make([]Value, 0, len(indices))
		for _, i := range indices {
			cells = append(cells, col.Cells[i])
		}
		out.cols[c] = Column{Name: col.Name, Cells: cells}
	}
	return out
}

// SortRows reorders rows by the given column. Missing values sort last
// regardless of direction; ties keep their original order.
func (d *Dataset) SortRows(column string, ascending bool) error {
	ci := d.ColumnIndex(column)
	if ci < 0 {
		return fmt.Errorf("column %q not found", column)
	}
	n := d.NumRows()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	key := d.cols[ci].Cells
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := key[order[a]], key[order[b]]
		if va.IsMissing() {
			return false
		}
		if vb.IsMissing() {
			return true
		}
		if ascending {
			return va.Less(vb)
		}
		return vb.Less(va)
	})
	for c := range d.cols {
		cells := make([]Value, n)
		for i, src := range order {
			cells[i] = d.cols[c].Cells[src]
		}
		d.cols[c].Cells = cells
	}
	return nil
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{cols: make([]Column, len(d.cols))}
	for i, c := range d.cols {
		cells := make([]Value, len(c.Cells))
		copy(cells, c.Cells)
		out.cols[i] = Column{Name: c.Name, Cells: cells}
	}
	return out
}
