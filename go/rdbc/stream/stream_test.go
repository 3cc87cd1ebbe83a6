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

package stream

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func produce(ctx context.Context, sink *Sink[int], n int, err error) {
	for i := range n {
		if !sink.Next(ctx, i) {
			break
		}
	}
	if err != nil {
		sink.Error(err)
		return
	}
	sink.Complete()
}

func TestCollect(t *testing.T) {
	s, sink := New[int]()
	go produce(t.Context(), sink, 3, nil)

	got, err := s.Collect(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.NoError(t, s.Err())

	_, err = s.Next(t.Context())
	assert.ErrorIs(t, err, io.EOF)
}

func TestErrorAfterValues(t *testing.T) {
	boom := errors.New("boom")
	s, sink := New[int]()
	go produce(t.Context(), sink, 2, boom)

	got, err := s.Collect(t.Context())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1}, got)
	assert.ErrorIs(t, s.Err(), boom)
}

func TestOnlyFirstTerminalSignalCounts(t *testing.T) {
	s, sink := New[int]()
	first := errors.New("first")
	assert.True(t, sink.Error(first))
	assert.False(t, sink.Error(errors.New("second")))
	assert.False(t, sink.Complete())
	assert.False(t, sink.Next(t.Context(), 1))

	_, err := s.Next(t.Context())
	assert.ErrorIs(t, err, first)
}

func TestCancelReleasesBlockedProducer(t *testing.T) {
	s, sink := New[int]()
	emitted := make(chan bool)
	go func() {
		emitted <- sink.Next(context.Background(), 1)
		sink.Complete()
	}()

	assert.False(t, sink.Cancelled())
	s.Cancel()
	s.Cancel()
	assert.False(t, <-emitted)
	<-s.Done()
	assert.True(t, sink.Cancelled())

	_, err := s.Next(t.Context())
	assert.Error(t, err)
}

func TestNextAfterCancel(t *testing.T) {
	s, sink := New[int]()
	s.Cancel()
	_, err := s.Next(t.Context())
	assert.ErrorIs(t, err, context.Canceled)
	select {
	case <-sink.Done():
	default:
		t.Fatal("sink should observe the cancellation")
	}
	assert.True(t, sink.Complete())
}

func TestBreakCancels(t *testing.T) {
	s, sink := New[int]()
	go produce(context.Background(), sink, 100, nil)

	var got []int
	for v, err := range s.All(t.Context()) {
		require.NoError(t, err)
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	<-s.Done()
	assert.Equal(t, []int{0, 1}, got)
	assert.True(t, sink.Cancelled())
}

func TestConsumerContext(t *testing.T) {
	s, sink := New[int]()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	sink.Complete()
}

func TestProducerContext(t *testing.T) {
	_, sink := New[int]()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.False(t, sink.Next(ctx, 1))
	sink.Complete()
}

func TestFailedAndOf(t *testing.T) {
	boom := errors.New("boom")
	_, err := Failed[string](boom).Collect(t.Context())
	assert.ErrorIs(t, err, boom)

	got, err := Of("a", "b").Collect(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = Of[string]().Collect(t.Context())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestErrIsNilWhileOpen(t *testing.T) {
	s, sink := New[int]()
	assert.NoError(t, s.Err())
	sink.Complete()
	<-s.Done()
	assert.NoError(t, s.Err())
}
