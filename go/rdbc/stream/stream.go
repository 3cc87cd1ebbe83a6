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

// Package stream provides a pull-based, cancellable stream with a single
// producer and a single consumer.
//
// The producer side (Sink) emits values with Next and finishes with exactly
// one terminal signal, Error or Complete. Next blocks until the consumer
// takes the value, so the producer never runs ahead of the consumer. The
// consumer may Cancel at any time; the producer then sees Next return false
// and is still expected to deliver its terminal signal once its own cleanup
// is done.
package stream

import (
	"context"
	"io"
	"iter"
	"sync"
)

// Stream is the consumer side.
type Stream[T any] struct {
	values     chan T
	terminated chan struct{}
	cancelled  chan struct{}
	stopped    chan struct{}

	termOnce   sync.Once
	cancelOnce sync.Once
	stopOnce   sync.Once

	err error
}

// Sink is the producer side of a Stream.
type Sink[T any] struct {
	s *Stream[T]
}

func newStream[T any](buffer int) *Stream[T] {
	return &Stream[T]{
		values:     make(chan T, buffer),
		terminated: make(chan struct{}),
		cancelled:  make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// New returns a connected stream and sink.
func New[T any]() (*Stream[T], *Sink[T]) {
	s := newStream[T](0)
	return s, &Sink[T]{s: s}
}

// Failed returns a stream that has already terminated with err.
func Failed[T any](err error) *Stream[T] {
	s := newStream[T](0)
	(&Sink[T]{s: s}).Error(err)
	return s
}

// Of returns a completed stream holding vs.
func Of[T any](vs ...T) *Stream[T] {
	s := newStream[T](len(vs))
	for _, v := range vs {
		s.values <- v
	}
	(&Sink[T]{s: s}).Complete()
	return s
}

// Next returns the next value. It returns io.EOF once the stream completed,
// the producer's error once it failed, and context.Canceled after Cancel.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-s.values:
		return v, nil
	case <-s.cancelled:
		return zero, context.Canceled
	case <-s.terminated:
		select {
		case v := <-s.values:
			return v, nil
		default:
		}
		if s.err != nil {
			return zero, s.err
		}
		return zero, io.EOF
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Cancel tells the producer to stop emitting. It never blocks.
func (s *Stream[T]) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancelled)
		s.stop()
	})
}

// Done is closed once the producer delivered its terminal signal.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.terminated
}

// Err returns the terminal error. It is nil while the stream is open and
// after a successful completion.
func (s *Stream[T]) Err() error {
	select {
	case <-s.terminated:
		return s.err
	default:
		return nil
	}
}

// All ranges over the stream. A failure is yielded once with the zero value
// and ends the iteration. Breaking out of the loop cancels the stream.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(v, err)
				return
			}
			if !yield(v, nil) {
				s.Cancel()
				return
			}
		}
	}
}

// Collect reads the stream to its end.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for v, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Stream[T]) stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// Next hands v to the consumer, blocking until it is taken. It returns
// false, dropping v, when the consumer cancelled, the stream already
// terminated or ctx is done.
func (k *Sink[T]) Next(ctx context.Context, v T) bool {
	select {
	case <-k.s.stopped:
		return false
	default:
	}
	select {
	case k.s.values <- v:
		return true
	case <-k.s.stopped:
		return false
	case <-ctx.Done():
		return false
	}
}

// Error terminates the stream with err. It reports whether this call
// delivered the terminal signal; later calls are ignored.
func (k *Sink[T]) Error(err error) bool {
	return k.terminate(err)
}

// Complete terminates the stream successfully. It reports whether this call
// delivered the terminal signal.
func (k *Sink[T]) Complete() bool {
	return k.terminate(nil)
}

func (k *Sink[T]) terminate(err error) bool {
	first := false
	k.s.termOnce.Do(func() {
		first = true
		k.s.err = err
		close(k.s.terminated)
		k.s.stop()
	})
	return first
}

// Cancelled reports whether the consumer cancelled the stream.
func (k *Sink[T]) Cancelled() bool {
	select {
	case <-k.s.cancelled:
		return true
	default:
		return false
	}
}

// Done is closed once the stream was cancelled or terminated. Producers
// select on it to stop early.
func (k *Sink[T]) Done() <-chan struct{} {
	return k.s.stopped
}
