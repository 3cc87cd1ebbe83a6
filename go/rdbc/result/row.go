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

package result

import (
	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/common/sqltypes"
)

// Row is one row of a row set. It is only valid inside the callback it was
// passed to.
type Row struct {
	columns []sqltypes.Field
	values  []any
}

// Len returns the number of values.
func (r Row) Len() int { return len(r.values) }

// At returns the value at index i. NULL is nil.
func (r Row) At(i int) any { return r.values[i] }

// Columns returns the column metadata of the row set.
func (r Row) Columns() []sqltypes.Field { return r.columns }

// Get returns the value of the named column.
func (r Row) Get(name string) (any, error) {
	for i, c := range r.columns {
		if c.Name == name && i < len(r.values) {
			return r.values[i], nil
		}
	}
	return nil, mterrors.NewValidationError("column %q does not exist", name)
}

// Values returns a copy of the row's values.
func (r Row) Values() []any {
	return append([]any(nil), r.values...)
}
