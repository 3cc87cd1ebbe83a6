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

// Package ctxutil builds contexts for cleanup work that must finish after
// the caller's context is cancelled, such as rolling back a transaction or
// closing a connection.
package ctxutil

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

type parentSpanContextKey struct{}

// Detach returns a context that ignores the cancellation and deadline of
// parent. Baggage is kept. The span of parent is remembered for linking
// with StartLinkedSpan rather than becoming the parent of new spans.
func Detach(parent context.Context) context.Context {
	//nolint:gocritic // detached contexts start from Background
	ctx := context.Background()

	if bag := baggage.FromContext(parent); bag.Len() > 0 {
		ctx = baggage.ContextWithBaggage(ctx, bag)
	}
	if span := trace.SpanFromContext(parent); span.SpanContext().IsValid() {
		ctx = context.WithValue(ctx, parentSpanContextKey{}, span.SpanContext())
	}
	return ctx
}

// Cleanup detaches parent and bounds the result by timeout.
func Cleanup(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(Detach(parent), timeout)
}

// ParentSpanContext returns the span context remembered by Detach.
func ParentSpanContext(ctx context.Context) (trace.SpanContext, bool) {
	psc, ok := ctx.Value(parentSpanContextKey{}).(trace.SpanContext)
	return psc, ok
}

// StartLinkedSpan starts a new root span, linked to the span remembered by
// Detach if there is one.
func StartLinkedSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	spanOpts := []trace.SpanStartOption{trace.WithNewRoot()}
	if psc, ok := ParentSpanContext(ctx); ok {
		spanOpts = append(spanOpts, trace.WithLinks(trace.Link{SpanContext: psc}))
	}
	spanOpts = append(spanOpts, opts...)
	return tracer.Start(ctx, name, spanOpts...)
}
