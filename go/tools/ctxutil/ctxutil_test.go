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

package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/baggage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestDetachIgnoresParentCancellation(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	detached := Detach(parent)
	cancel()

	require.Error(t, parent.Err())
	assert.NoError(t, detached.Err())
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}

func TestDetachKeepsBaggage(t *testing.T) {
	member, err := baggage.NewMember("session_id", "s1")
	require.NoError(t, err)
	bag, err := baggage.New(member)
	require.NoError(t, err)

	detached := Detach(baggage.ContextWithBaggage(context.Background(), bag))
	assert.Equal(t, "s1", baggage.FromContext(detached).Member("session_id").Value())
}

func TestDetachRemembersSpanWithoutParenting(t *testing.T) {
	sc := spanContext(t)
	detached := Detach(trace.ContextWithSpanContext(context.Background(), sc))

	assert.False(t, trace.SpanFromContext(detached).SpanContext().IsValid(),
		"detached context must not carry the parent span")
	psc, ok := ParentSpanContext(detached)
	require.True(t, ok)
	assert.Equal(t, sc.SpanID(), psc.SpanID())

	_, ok = ParentSpanContext(Detach(context.Background()))
	assert.False(t, ok)
}

func TestCleanup(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	ctx, done := Cleanup(parent, time.Minute)
	defer done()

	assert.NoError(t, ctx.Err())
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestStartLinkedSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("test")

	tests := []struct {
		name      string
		parent    context.Context
		wantLinks int
	}{
		{name: "with parent span", parent: trace.ContextWithSpanContext(context.Background(), spanContext(t)), wantLinks: 1},
		{name: "without parent span", parent: context.Background(), wantLinks: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()
			_, span := StartLinkedSpan(Detach(tt.parent), tracer, "rollback")
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.False(t, spans[0].Parent.IsValid(), "linked span must be a new root")
			require.Len(t, spans[0].Links, tt.wantLinks)
			if tt.wantLinks > 0 {
				assert.Equal(t, spanContext(t).TraceID(), spans[0].Links[0].SpanContext.TraceID())
			}
		})
	}
}
