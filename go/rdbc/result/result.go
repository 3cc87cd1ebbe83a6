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

// Package result holds the outcome of one executed statement: an update
// count or a row set that is read lazily, at most once.
package result

import (
	"context"
	"sync/atomic"

	"google.golang.org/grpc/codes"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// Kind tells what a Result carries.
type Kind int

const (
	// KindRows is a row set. RowsUpdated is -1.
	KindRows Kind = iota
	// KindUpdateCount is the number of rows changed by a DML statement.
	KindUpdateCount
	// KindScheme is the outcome of a schema change. RowsUpdated is 0.
	KindScheme
)

func (k Kind) String() string {
	switch k {
	case KindRows:
		return "rows"
	case KindUpdateCount:
		return "update_count"
	case KindScheme:
		return "scheme"
	}
	return "unknown"
}

const (
	readIdle int32 = iota
	readBusy
	readDone
)

// Result is one statement's outcome.
type Result struct {
	kind   Kind
	count  int64
	reader client.RowReader
	state  atomic.Int32
}

// NewRows returns a row set result reading from reader.
func NewRows(reader client.RowReader) *Result {
	return &Result{kind: KindRows, count: -1, reader: reader}
}

// NewUpdateCount returns a result reporting n changed rows.
func NewUpdateCount(n int64) *Result {
	return &Result{kind: KindUpdateCount, count: n}
}

// NewScheme returns the result of a schema change.
func NewScheme() *Result {
	return &Result{kind: KindScheme}
}

// FromPart converts a part delivered by a query stream. Parts describing
// columns become row sets; the others report the affected row count.
func FromPart(part client.Part) (*Result, error) {
	if part.Result == nil {
		return nil, mterrors.Errorf(codes.Internal, "query part %d carries no result set", part.Index)
	}
	if part.Result.HasRows() {
		return NewRows(part.Reader()), nil
	}
	return NewUpdateCount(int64(part.Result.RowsAffected)), nil
}

// FromResultSet converts the result set produced for a statement of type
// rows. A nil set yields an empty row set or a zero count.
func FromResultSet(set *sqltypes.Result, rows bool) *Result {
	if rows {
		return NewRows(sqltypes.NewReader(set))
	}
	if set == nil {
		return NewUpdateCount(0)
	}
	return NewUpdateCount(int64(set.RowsAffected))
}

func (r *Result) Kind() Kind { return r.kind }

// RowsUpdated returns the number of changed rows, 0 for a schema change and
// -1 for a row set.
func (r *Result) RowsUpdated() int64 {
	return r.count
}

// Rows calls fn for every row. A row set can be read once; a second read
// fails, and so does a read started while another one is in progress.
// Results without rows call fn zero times.
func (r *Result) Rows(ctx context.Context, fn func(Row) error) error {
	if r.kind != KindRows {
		return nil
	}
	if !r.state.CompareAndSwap(readIdle, readBusy) {
		if r.state.Load() == readBusy {
			return mterrors.NewValidationError("result is already being read")
		}
		return mterrors.NewValidationError("result has already been read")
	}
	defer r.state.Store(readDone)

	columns := r.reader.Columns()
	for r.reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(Row{columns: columns, values: r.reader.Values()}); err != nil {
			return err
		}
	}
	return r.reader.Err()
}

// Map converts every row with fn.
func Map[T any](ctx context.Context, r *Result, fn func(Row) (T, error)) ([]T, error) {
	var out []T
	err := r.Rows(ctx, func(row Row) error {
		v, err := fn(row)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}
