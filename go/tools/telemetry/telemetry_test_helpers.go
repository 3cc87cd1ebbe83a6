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
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// testTelemetrySetup holds test telemetry infrastructure
type testTelemetrySetup struct {
	Telemetry    *Telemetry
	SpanExporter *tracetest.InMemoryExporter
	MetricReader *metric.ManualReader
}

// setupRestoreDefaultGlobals saves the otel globals to restore after the test
// and subtests complete.
func setupRestoreDefaultGlobals(t *testing.T) {
	t.Helper()
	originalTracerProvider := otel.GetTracerProvider()
	originalMeterProvider := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(originalTracerProvider)
		otel.SetMeterProvider(originalMeterProvider)
	})
}

// SetupTestTelemetry creates an initialized telemetry instance with in-memory
// exporters for testing. Providers are shut down when the test ends.
func SetupTestTelemetry(t *testing.T) *testTelemetrySetup {
	t.Helper()

	setupRestoreDefaultGlobals(t)

	spanExporter := tracetest.NewInMemoryExporter()
	metricReader := metric.NewManualReader()

	telemetry := NewTelemetry().WithTestExporters(spanExporter, metricReader)
	if err := telemetry.InitTelemetry(t.Context(), "test-service"); err != nil {
		t.Fatalf("failed to initialize telemetry: %v", err)
	}
	t.Cleanup(func() {
		_ = telemetry.ShutdownTelemetry(context.Background())
	})

	return &testTelemetrySetup{
		Telemetry:    telemetry,
		SpanExporter: spanExporter,
		MetricReader: metricReader,
	}
}

// Metrics returns Metrics bound to the test meter provider.
func (s *testTelemetrySetup) Metrics(t *testing.T) Metrics {
	t.Helper()
	m, err := NewMetrics(s.Telemetry.GetMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m
}

// CounterValue sums the data points of the named int64 counter whose
// attributes include every attribute in match.
func (s *testTelemetrySetup) CounterValue(t *testing.T, name string, match ...attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := s.MetricReader.Collect(t.Context(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
			}
		dataPoints:
			for _, dp := range sum.DataPoints {
				for _, kv := range match {
					v, ok := dp.Attributes.Value(kv.Key)
					if !ok || v != kv.Value {
						continue dataPoints
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}
