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

// Package query turns statement text into the executable text and the
// parameter list sent to the database client.
//
// Placeholders are written either positionally as "?" or by name as
// "$name". Both forms are rewritten into the ordinal "$1", "$2", ... form in
// order of first appearance. Positional placeholders are named "$p1", "$p2",
// ... so they can also be bound by name.
//
// A "?" outside quotes and comments is always a placeholder, so the jsonb
// operators ?, ?| and ?& cannot be written directly. Use the equivalent
// functions jsonb_exists, jsonb_exists_any and jsonb_exists_all instead.
// Backslash escapes are honored in E'...' strings only.
package query

import (
	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/binding"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// OperationType classifies one statement of a query.
type OperationType int

const (
	Unknown OperationType = iota
	Select
	Insert
	Upsert
	Update
	Delete
	Replace
	Scheme
)

var operationTypeNames = [...]string{
	Unknown: "UNKNOWN",
	Select:  "SELECT",
	Insert:  "INSERT",
	Upsert:  "UPSERT",
	Update:  "UPDATE",
	Delete:  "DELETE",
	Replace: "REPLACE",
	Scheme:  "SCHEME",
}

func (o OperationType) String() string {
	if o >= 0 && int(o) < len(operationTypeNames) {
		return operationTypeNames[o]
	}
	return "UNKNOWN"
}

// ReturnsRows reports whether the statement produces a row set rather than
// an update count.
func (o OperationType) ReturnsRows() bool {
	return o == Select
}

// IsScheme reports whether the statement changes the schema.
func (o OperationType) IsScheme() bool {
	return o == Scheme
}

var keywordTypes = map[string]OperationType{
	"SELECT":   Select,
	"WITH":     Select,
	"VALUES":   Select,
	"TABLE":    Select,
	"SHOW":     Select,
	"EXPLAIN":  Select,
	"INSERT":   Insert,
	"UPSERT":   Upsert,
	"UPDATE":   Update,
	"DELETE":   Delete,
	"REPLACE":  Replace,
	"CREATE":   Scheme,
	"ALTER":    Scheme,
	"DROP":     Scheme,
	"TRUNCATE": Scheme,
	"COMMENT":  Scheme,
	"GRANT":    Scheme,
	"REVOKE":   Scheme,
}

// Classify returns the operation type of a single statement by its first
// keyword.
func Classify(stmt string) OperationType {
	if op, ok := keywordTypes[firstKeyword(stmt)]; ok {
		return op
	}
	return Unknown
}

// Query is parsed statement text. It is immutable and may be shared.
type Query struct {
	text     string
	compiled string
	names    []string
	ops      []OperationType
}

// Parse scans text, which may hold several statements separated by ";".
// Empty text and unterminated quotes or comments are validation errors.
func Parse(text string) (*Query, error) {
	s := newScanner(text)
	if err := s.scan(); err != nil {
		return nil, err
	}
	if len(s.statements) == 0 {
		return nil, mterrors.NewValidationError("query text is empty")
	}
	q := &Query{
		text:     text,
		compiled: s.out.String(),
		names:    s.names,
		ops:      make([]OperationType, len(s.statements)),
	}
	for i, stmt := range s.statements {
		q.ops[i] = Classify(stmt)
	}
	return q, nil
}

// Text returns the text the query was parsed from.
func (q *Query) Text() string { return q.text }

// ParamNames returns the declared parameter names in ordinal order.
func (q *Query) ParamNames() []string {
	return append([]string(nil), q.names...)
}

// OperationTypes returns one entry per statement.
func (q *Query) OperationTypes() []OperationType {
	return append([]OperationType(nil), q.ops...)
}

// IsScheme reports whether every statement changes the schema.
func (q *Query) IsScheme() bool {
	for _, op := range q.ops {
		if !op.IsScheme() {
			return false
		}
	}
	return len(q.ops) > 0
}

// NewBinding returns an unbound binding for the query's parameters.
func (q *Query) NewBinding() *binding.Binding {
	return binding.New(q.names)
}

// NewBindings starts a binding batch for the query's parameters.
func (q *Query) NewBindings() *binding.Bindings {
	return binding.NewBindings(q.names)
}

// Compile validates b and returns the executable text with the parameter
// values in ordinal order. A nil binding is the empty binding.
func (q *Query) Compile(b *binding.Binding) (string, client.Params, error) {
	if b == nil {
		b = binding.Empty()
	}
	names := b.Names()
	if len(names) != len(q.names) {
		return "", nil, mterrors.NewValidationError("binding declares %d parameters, query declares %d", len(names), len(q.names))
	}
	for i, name := range names {
		if name != q.names[i] {
			return "", nil, mterrors.NewValidationError("binding parameter %s does not match query parameter %s", name, q.names[i])
		}
	}
	if err := b.Validate(); err != nil {
		return "", nil, err
	}
	return q.compiled, b.Params(), nil
}
