// Package table holds the in-memory representation of one parsed sheet:
// ordered, named columns whose cells share a declared kind.
package table

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// ErrRaggedColumns is returned when columns of one table disagree on row count.
var ErrRaggedColumns = errors.New("columns have different row counts")

// Kind is the declared classification of a column. It decides which
// normalization transform applies to every cell of the column.
type Kind int

const (
	KindText Kind = iota
	KindTemporal
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTemporal:
		return "temporal"
	case KindOther:
		return "other"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type valueKind int

const (
	missingValue valueKind = iota
	textValue
	timeValue
	otherValue
)

// Value is a single cell. The zero Value is Missing.
type Value struct {
	kind  valueKind
	text  string
	time  time.Time
	other any
}

// Missing returns the missing-cell sentinel. It is distinct from Text("").
func Missing() Value { return Value{} }

func Text(s string) Value { return Value{kind: textValue, text: s} }

func Time(t time.Time) Value { return Value{kind: timeValue, time: t} }

// Other wraps a value that is neither text nor a date, such as a number or bool.
func Other(v any) Value {
	if v == nil {
		return Missing()
	}
	return Value{kind: otherValue, other: v}
}

func (v Value) IsMissing() bool { return v.kind == missingValue }
func (v Value) IsText() bool    { return v.kind == textValue }
func (v Value) IsTime() bool    { return v.kind == timeValue }
func (v Value) IsOther() bool   { return v.kind == otherValue }

// AsText returns the string held by a Text value.
func (v Value) AsText() (string, bool) { return v.text, v.kind == textValue }

// AsTime returns the time held by a Time value.
func (v Value) AsTime() (time.Time, bool) { return v.time, v.kind == timeValue }

// AsOther returns the payload of an Other value.
func (v Value) AsOther() (any, bool) { return v.other, v.kind == otherValue }

// String renders the cell as text. Missing renders as "".
func (v Value) String() string {
	switch v.kind {
	case textValue:
		return v.text
	case timeValue:
		return v.time.Format("2006-01-02 15:04:05")
	case otherValue:
		return formatOther(v.other)
	}
	return ""
}

// Equal reports whether two values carry the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case textValue:
		return v.text == o.text
	case timeValue:
		return v.time.Equal(o.time)
	case otherValue:
		return reflect.DeepEqual(v.other, o.other)
	}
	return true
}

func formatOther(x any) string {
	switch o := x.(type) {
	case string:
		return o
	case bool:
		if o {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(o, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(o), 'f', -1, 32)
	case time.Time:
		return o.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return o.String()
	}
	return fmt.Sprint(x)
}

// Column is a named, kinded sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Value
}

// Table is an ordered set of columns with a uniform row count.
type Table struct {
	cols []Column
	rows int
}

// New builds a table from columns. All columns must have the same length.
func New(cols ...Column) (*Table, error) {
	t := &Table{cols: cols}
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c.Cells)
			continue
		}
		if len(c.Cells) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name, len(c.Cells), t.rows, ErrRaggedColumns)
		}
	}
	return t, nil
}

// Rows returns the number of data rows (the header is not a row).
func (t *Table) Rows() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Column returns the i-th column. The returned Cells slice is shared with the table.
func (t *Table) Column(i int) Column { return t.cols[i] }

// Columns returns the columns in order.
func (t *Table) Columns() []Column { return t.cols }

func (t *Table) Headers() []string {
	h := make([]string, len(t.cols))
	for i, c := range t.cols {
		h[i] = c.Name
	}
	return h
}

// Row returns the cells of row i across all columns.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Cells[i]
	}
	return row
}

// Clone returns a deep copy of the column structure. Cell payloads of
// Other values are copied by value.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cells := make([]Value, len(c.Cells))
		copy(cells, c.Cells)
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return &Table{cols: cols, rows: t.rows}
}
