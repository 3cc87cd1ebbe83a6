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

package statement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/result"
	"github.com/multigres/rdbc/go/rdbc/stream"
)

func TestCollectorOrdersObserversBeforeEmit(t *testing.T) {
	s, sink := stream.New[*result.Result]()
	var order []string
	observers := []Observer{
		ObserverFunc(func(context.Context, client.Part) error { order = append(order, "a"); return nil }),
		ObserverFunc(func(context.Context, client.Part) error { order = append(order, "b"); return nil }),
	}
	c := NewPartCollector(observers, sink, nil)

	go func() {
		c.OnNextPart(t.Context(), countPart(3))
		sink.Complete()
	}()
	results, err := s.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].RowsUpdated())
	assert.Equal(t, []string{"a", "b"}, order)
	assert.NoError(t, c.Err())
}

func TestCollectorKeepsFirstIssue(t *testing.T) {
	_, sink := stream.New[*result.Result]()
	c := NewPartCollector(nil, sink, nil)

	c.OnIssues(t.Context(), []mterrors.Issue{{Message: "one"}, {Message: "two"}})
	c.OnIssues(t.Context(), []mterrors.Issue{{Message: "three"}})

	var pie *mterrors.ProtocolIssueError
	require.ErrorAs(t, c.Err(), &pie)
	assert.Equal(t, "one", pie.Issue.Message)

	// Parts after a failure are dropped without blocking.
	c.OnNextPart(t.Context(), countPart(1))
	sink.Complete()
}

func TestCollectorStopsAtFirstObserverFailure(t *testing.T) {
	_, sink := stream.New[*result.Result]()
	boom := errors.New("boom")
	second := 0
	c := NewPartCollector([]Observer{
		ObserverFunc(func(context.Context, client.Part) error { return boom }),
		ObserverFunc(func(context.Context, client.Part) error { second++; return nil }),
	}, sink, nil)

	c.OnNextPart(t.Context(), countPart(1))
	assert.ErrorIs(t, c.Err(), boom)
	assert.ErrorContains(t, c.Err(), "result observer: boom")
	assert.Zero(t, second)
	sink.Complete()
}

func TestCollectorConversionFailure(t *testing.T) {
	_, sink := stream.New[*result.Result]()
	c := NewPartCollector(nil, sink, nil)
	c.OnNextPart(t.Context(), client.Part{Index: 4})
	assert.ErrorContains(t, c.Err(), "query part 4 carries no result set")
	sink.Complete()
}

func TestCollectorAfterCancelDoesNotBlock(t *testing.T) {
	s, sink := stream.New[*result.Result]()
	s.Cancel()
	c := NewPartCollector(nil, sink, nil)
	c.OnNextPart(t.Context(), countPart(1))
	assert.NoError(t, c.Err())
	sink.Complete()
}
