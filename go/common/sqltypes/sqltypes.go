// Copyright 2026 Supabase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqltypes provides materialized result sets that preserve the NULL
// vs zero value distinction. They back the row readers handed out by the
// database clients, while the rdbc packages only see the reader interface.
package sqltypes

// Field describes one column of a result set.
type Field struct {
	// Name is the column name as reported by the server.
	Name string

	// DataTypeOID is the server type identifier of the column (a PostgreSQL
	// OID for the pgx client). Zero when unknown.
	DataTypeOID uint32
}

// Row represents a row with nullable column values.
type Row struct {
	// Values contains the decoded column values. nil entry means NULL.
	Values []any
}

// IsNull returns true if the value at index i is NULL.
func (r *Row) IsNull(i int) bool {
	return r.Values[i] == nil
}

// Result represents one materialized result set.
type Result struct {
	// Fields describes the columns in the result set. Empty for statements
	// that do not return rows.
	Fields []Field

	// RowsAffected is the number of rows affected (INSERT, UPDATE, DELETE, etc.)
	RowsAffected uint64

	// Rows contains the actual data rows.
	Rows []*Row

	// CommandTag is the server command tag for this result set.
	// Examples: "SELECT 42", "INSERT 0 5", "UPDATE 10", "DELETE 3"
	CommandTag string
}

// HasRows reports whether the result set describes columns, i.e. the
// statement produced a row set (possibly empty).
func (r *Result) HasRows() bool {
	return r != nil && len(r.Fields) > 0
}

// MakeRow creates a new Row from a slice of values.
// nil entries represent NULL values.
func MakeRow(values ...any) *Row {
	row := &Row{
		Values: make([]any, len(values)),
	}
	copy(row.Values, values)
	return row
}

// Reader walks the rows of a Result once, front to back.
type Reader struct {
	res *Result
	pos int
}

// NewReader returns a reader positioned before the first row of res.
// A nil res reads as an empty result set.
func NewReader(res *Result) *Reader {
	if res == nil {
		res = &Result{}
	}
	return &Reader{res: res, pos: -1}
}

// Columns returns the result set's columns.
func (r *Reader) Columns() []Field {
	return r.res.Fields
}

// RowCount returns the total number of rows in the result set.
func (r *Reader) RowCount() int {
	return len(r.res.Rows)
}

// Next advances to the next row and reports whether one exists.
func (r *Reader) Next() bool {
	if r.pos+1 >= len(r.res.Rows) {
		r.pos = len(r.res.Rows)
		return false
	}
	r.pos++
	return true
}

// Values returns the values of the current row.
// It must only be called after Next returned true.
func (r *Reader) Values() []any {
	return r.res.Rows[r.pos].Values
}

// Err always returns nil: a materialized result set cannot fail mid-read.
func (r *Reader) Err() error {
	return nil
}
