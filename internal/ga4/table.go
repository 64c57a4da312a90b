package ga4

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// LabelColumn is the name of the injected leading column identifying which
// source a row came from. The value is the caller-chosen label from the
// property config, not the visitor's location.
const LabelColumn = "source_label"

// Value is a single table cell. Dimension cells are strings, metric and
// derived cells are numbers. Derived ratio cells whose denominator was
// zero are null, never zero.
type Value struct {
	kind valueKind
	str  string
	num  float64
}

type valueKind int

const (
	valueNull valueKind = iota
	valueString
	valueNumber
)

// StringValue returns a string-typed cell.
func StringValue(s string) Value { return Value{kind: valueString, str: s} }

// NumberValue returns a number-typed cell.
func NumberValue(f float64) Value { return Value{kind: valueNumber, num: f} }

// NullValue returns a null cell.
func NullValue() Value { return Value{kind: valueNull} }

// IsNull reports whether the cell holds no value.
func (v Value) IsNull() bool { return v.kind == valueNull }

// Str returns the string content of a string cell, or "" otherwise.
func (v Value) Str() string { return v.str }

// Num returns the numeric content of a number cell, or 0 otherwise.
// Check IsNull first when zero is meaningful.
func (v Value) Num() float64 { return v.num }

// Render returns the cell formatted for CSV and terminal output. Null
// renders as the empty string; integral numbers render without a decimal
// point.
func (v Value) Render() string {
	switch v.kind {
	case valueString:
		return v.str
	case valueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes string cells as JSON strings, number cells as JSON
// numbers and null cells as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueString:
		return json.Marshal(v.str)
	case valueNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON: JSON strings
// become string cells, numbers become number cells and null becomes a null
// cell.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NullValue()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = NumberValue(f)
	return nil
}

// Table is an ordered set of named columns over rows of cells. The column
// set is fixed by the query that produced it; tables are built fresh per
// call and never cached.
type Table struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`

	// Truncated is set when the remote reported more rows than the query's
	// row limit allowed us to fetch. Truncation is never silent.
	Truncated bool `json:"truncated,omitempty"`
}

// NewTable returns an empty table with the given column set.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// ColumnIndex returns the position of a named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds one row. The cell count must match the column count;
// a mismatch is an internal invariant violation.
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AppendTable concatenates another table's rows onto this one. Both tables
// must share an identical column set; per-source tables built from the
// same dimension/metric lists always do, so a mismatch surfaces as
// *SchemaMismatchError rather than a silently malformed result.
func (t *Table) AppendTable(other *Table) error {
	if !sameColumns(t.Columns, other.Columns) {
		return &SchemaMismatchError{Want: t.Columns, Got: other.Columns}
	}
	t.Rows = append(t.Rows, other.Rows...)
	if other.Truncated {
		t.Truncated = true
	}
	return nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// InsertLabelColumn prepends a constant-valued string column, used to tag
// every row of a per-source table with its source label before
// concatenation.
func (t *Table) InsertLabelColumn(name, label string) {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, name)
	cols = append(cols, t.Columns...)
	t.Columns = cols
	for i, row := range t.Rows {
		cells := make([]Value, 0, len(row)+1)
		cells = append(cells, StringValue(label))
		cells = append(cells, row...)
		t.Rows[i] = cells
	}
}

// AddColumn appends a column computed from existing cells. values must
// have one entry per row.
func (t *Table) AddColumn(name string, values []Value) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// WriteCSV renders the table with a header row. Null cells render empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, cell := range row {
			record[i] = cell.Render()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
