package engine

import (
	"fmt"
	"slices"
)

// Record maps column names to values.
type Record map[string]any

// Table is an ordered set of columns and records. Record order is the
// original row position.
type Table struct {
	Columns []string
	Records []Record
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Append adds a record.
func (t *Table) Append(r Record) {
	t.Records = append(t.Records, r)
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether name is one of the table columns.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Result holds the result columns of one row.
type Result struct {
	Response     string
	ErrorMessage string
	ErrorType    string
	ErrorRaw     string
}

// HasResponse reports whether the call produced a payload for the row.
func (r Result) HasResponse() bool {
	return r.Response != ""
}

// HasError reports whether any part of the error triple is set.
func (r Result) HasError() bool {
	return r.ErrorMessage != "" || r.ErrorType != "" || r.ErrorRaw != ""
}

// Row is one input record plus its original position and result columns.
// Values is shared with the input table and must be treated as read-only.
type Row struct {
	Position int
	Values   Record
	Result   Result
}

// Text returns the value of column as a string, "" when missing or nil.
func (r Row) Text(column string) string {
	v, ok := r.Values[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Unit is the atomic item handed to a worker: one row, or an ordered batch.
type Unit struct {
	Index int
	Rows  []Row
}

// fresh returns a copy of u with new rows and empty results, so a worker
// never writes to a row another goroutine can see.
func (u Unit) fresh() Unit {
	rows := make([]Row, len(u.Rows))
	for i, r := range u.Rows {
		rows[i] = Row{Position: r.Position, Values: r.Values}
	}
	return Unit{Index: u.Index, Rows: rows}
}

// OutputTable is the reconciled result of a run: same row count and order as
// the input, each row carrying its result columns.
type OutputTable struct {
	InputColumns []string
	Names        ColumnNames
	Rows         []Row

	mode    ErrorMode
	verbose bool
}

// Len returns the number of rows.
func (o *OutputTable) Len() int {
	return len(o.Rows)
}

// ResultColumns returns the result columns kept in the output schema:
// error_raw only in verbose mode, and no error columns at all in FAIL mode.
func (o *OutputTable) ResultColumns() []string {
	if o.mode == ErrorModeFail {
		return []string{o.Names.Response}
	}
	cols := []string{o.Names.Response, o.Names.ErrorMessage, o.Names.ErrorType}
	if o.verbose {
		cols = append(cols, o.Names.ErrorRaw)
	}
	return cols
}

// Columns returns input columns followed by the kept result columns.
func (o *OutputTable) Columns() []string {
	return append(slices.Clone(o.InputColumns), o.ResultColumns()...)
}

// Record materialises row i with its kept result columns.
func (o *OutputTable) Record(i int) Record {
	row := o.Rows[i]
	rec := make(Record, len(o.InputColumns)+4)
	for _, c := range o.InputColumns {
		rec[c] = row.Values[c]
	}
	rec[o.Names.Response] = row.Result.Response
	if o.mode == ErrorModeFail {
		return rec
	}
	rec[o.Names.ErrorMessage] = row.Result.ErrorMessage
	rec[o.Names.ErrorType] = row.Result.ErrorType
	if o.verbose {
		rec[o.Names.ErrorRaw] = row.Result.ErrorRaw
	}
	return rec
}

// Table materialises the whole output.
func (o *OutputTable) Table() *Table {
	t := &Table{Columns: o.Columns(), Records: make([]Record, 0, len(o.Rows))}
	for i := range o.Rows {
		t.Records = append(t.Records, o.Record(i))
	}
	return t
}

// Succeeded counts rows with a non-empty response.
func (o *OutputTable) Succeeded() int {
	n := 0
	for _, r := range o.Rows {
		if r.Result.HasResponse() {
			n++
		}
	}
	return n
}

// Failed counts rows with an empty response.
func (o *OutputTable) Failed() int {
	return len(o.Rows) - o.Succeeded()
}
