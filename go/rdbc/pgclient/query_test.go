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

package pgclient

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// feed runs n rows of one result set through a chunker, as a query would.
func feed(t *testing.T, emit emitFunc, index, n int, tag string) {
	t.Helper()
	c := newChunker(index, []sqltypes.Field{{Name: "id"}}, emit)
	for i := range n {
		require.NoError(t, c.add(sqltypes.MakeRow(int64(i))))
	}
	require.NoError(t, c.finish(pgconn.NewCommandTag(tag)))
}

func TestResultSetsKeepCommandOutcome(t *testing.T) {
	for _, n := range []int{0, 1, partRows - 1, partRows, 2 * partRows, 2*partRows + 7} {
		var sets resultSets
		feed(t, sets.add, 0, n, "INSERT 0 "+strconv.Itoa(n))

		require.Len(t, sets, 1, "rows=%d", n)
		assert.Len(t, sets[0].Rows, n)
		assert.Equal(t, uint64(n), sets[0].RowsAffected, "rows=%d", n)
		assert.Equal(t, "INSERT 0 "+strconv.Itoa(n), sets[0].CommandTag)
		assert.Equal(t, []sqltypes.Field{{Name: "id"}}, sets[0].Fields)
	}
}

func TestResultSetsSeveralStatements(t *testing.T) {
	var sets resultSets
	feed(t, sets.add, 0, partRows, "SELECT 1000")
	feed(t, sets.add, 1, 0, "UPDATE 3")

	require.Len(t, sets, 2)
	assert.Len(t, sets[0].Rows, partRows)
	assert.Equal(t, "SELECT 1000", sets[0].CommandTag)
	assert.Equal(t, uint64(3), sets[1].RowsAffected)
	assert.Empty(t, sets[1].Rows)
}

type partsRecorder struct {
	parts []client.Part
}

func (r *partsRecorder) OnNextPart(_ context.Context, p client.Part) { r.parts = append(r.parts, p) }
func (r *partsRecorder) OnIssues(context.Context, []mterrors.Issue)  {}

func TestPartEmitterDropsEmptyClosingChunk(t *testing.T) {
	rec := &partsRecorder{}
	emit := newPartEmitter(rec).emit(t.Context())

	feed(t, emit, 0, 2*partRows, "SELECT 2000")
	feed(t, emit, 1, 0, "DELETE 4")
	feed(t, emit, 2, 3, "SELECT 3")

	require.Len(t, rec.parts, 4)
	assert.Equal(t, []int{0, 0, 1, 2}, []int{rec.parts[0].Index, rec.parts[1].Index, rec.parts[2].Index, rec.parts[3].Index})
	assert.Len(t, rec.parts[1].Result.Rows, partRows)
	assert.Equal(t, uint64(4), rec.parts[2].Result.RowsAffected)
	assert.Equal(t, "SELECT 3", rec.parts[3].Result.CommandTag)
}

func TestPartEmitterStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	rec := &partsRecorder{}
	c := newChunker(0, nil, newPartEmitter(rec).emit(ctx))
	err := c.finish(pgconn.NewCommandTag("UPDATE 1"))
	assert.ErrorIs(t, err, context.Canceled)
}
