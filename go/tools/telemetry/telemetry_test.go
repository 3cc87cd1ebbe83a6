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

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracerRecordsSpans(t *testing.T) {
	setup := SetupTestTelemetry(t)

	_, span := Tracer().Start(t.Context(), "conn/test")
	span.End()

	spans := setup.SpanExporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "conn/test", spans[0].Name)
}

func TestInitTelemetryIsIdempotent(t *testing.T) {
	setup := SetupTestTelemetry(t)

	mp := setup.Telemetry.GetMeterProvider()
	require.NoError(t, setup.Telemetry.InitTelemetry(t.Context(), "other"))
	assert.Same(t, mp, setup.Telemetry.GetMeterProvider())
}

func TestShutdownBeforeInit(t *testing.T) {
	require.NoError(t, NewTelemetry().ShutdownTelemetry(context.Background()))
}

func TestMetrics(t *testing.T) {
	setup := SetupTestTelemetry(t)
	m := setup.Metrics(t)
	ctx := t.Context()

	m.SessionAcquired(ctx, "table")
	m.SessionAcquired(ctx, "table")
	m.SessionAcquired(ctx, "query")
	m.SessionReleased(ctx, "table", "commit")
	m.QueryExecuted(ctx, "data", nil)
	m.QueryExecuted(ctx, "data", errors.New("boom"))

	assert.Equal(t, int64(3), setup.CounterValue(t, "rdbc.session.acquired"))
	assert.Equal(t, int64(2), setup.CounterValue(t, "rdbc.session.acquired", attribute.String(attrKeyPool, "table")))
	assert.Equal(t, int64(1), setup.CounterValue(t, "rdbc.session.released", attribute.String(attrKeyReason, "commit")))
	assert.Equal(t, int64(1), setup.CounterValue(t, "rdbc.query.count", attribute.String(attrKeyStatus, "error")))
}

func TestZeroMetricsIsNoop(t *testing.T) {
	var m Metrics
	ctx := t.Context()

	assert.NotPanics(t, func() {
		m.SessionAcquired(ctx, "table")
		m.SessionReleased(ctx, "table", "close")
		m.QueryExecuted(ctx, "scheme", nil)
	})
}
