// Package tabular provides a minimal ordered-column, row-oriented table used
// to move structured log data between the parser and the log stores.
//
// Cells are strings; integer-typed columns (LineId, EventId, Occurrences) are
// parsed on access. Only column names and order are significant.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoSuchLogData is returned by log stores when a table holds no rows,
// either because it does not exist yet or because it is empty.
var ErrNoSuchLogData = errors.New("no such log data")

// Table is an ordered-column table. Rows hold one string cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds one row. The number of values must match the column count.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("appending row: got %d values for %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at the given row in the named column.
func (t *Table) Value(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// Int returns the cell at the given row in the named column parsed as an int.
func (t *Table) Int(row int, column string) (int, error) {
	v, ok := t.Value(row, column)
	if !ok {
		return 0, fmt.Errorf("no cell at row %d column %q", row, column)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %q column: %w", column, err)
	}
	return n, nil
}

// Extend appends all rows of other. Column sets must match exactly.
func (t *Table) Extend(other *Table) error {
	if len(t.Columns) != len(other.Columns) {
		return fmt.Errorf("extending table: column count mismatch (%d vs %d)", len(t.Columns), len(other.Columns))
	}
	for i := range t.Columns {
		if t.Columns[i] != other.Columns[i] {
			return fmt.Errorf("extending table: column %d is %q, want %q", i, other.Columns[i], t.Columns[i])
		}
	}
	t.Rows = append(t.Rows, other.Rows...)
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := New(t.Columns...)
	c.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		c.Rows = append(c.Rows, append([]string(nil), row...))
	}
	return c
}
