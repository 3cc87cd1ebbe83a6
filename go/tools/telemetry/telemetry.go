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

// Package telemetry holds the OpenTelemetry plumbing shared by the rdbc
// packages: one tracer for spans around connection operations and the
// metric instruments that count session acquisition and release.
//
// Nothing is exported unless a program calls InitTelemetry with exporters;
// until then the global no-op providers are used.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracingServiceName = "github.com/multigres/rdbc"

var tracer = otel.Tracer(tracingServiceName)

// Tracer returns a tracer for creating spans named github.com/multigres/rdbc
func Tracer() trace.Tracer {
	return tracer
}

// Telemetry holds OpenTelemetry configuration and state
type Telemetry struct {
	mu             sync.Mutex
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	initialized    bool

	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
	syncExport   bool
}

// NewTelemetry creates a new Telemetry instance
func NewTelemetry() *Telemetry {
	return &Telemetry{}
}

// WithExporters configures where spans and metrics go. Either may be nil.
// Must be called before InitTelemetry().
func (t *Telemetry) WithExporters(spanExporter sdktrace.SpanExporter, metricReader sdkmetric.Reader) *Telemetry {
	t.spanExporter = spanExporter
	t.metricReader = metricReader
	return t
}

// WithTestExporters is WithExporters with synchronous span export, so tests
// can inspect spans as soon as they end.
func (t *Telemetry) WithTestExporters(spanExporter sdktrace.SpanExporter, metricReader sdkmetric.Reader) *Telemetry {
	t.syncExport = true
	return t.WithExporters(spanExporter, metricReader)
}

// InitTelemetry installs the tracer and meter providers globally.
func (t *Telemetry) InitTelemetry(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return nil
	}

	resourceAttrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
	}
	resourceAttrs = append(resourceAttrs, attrs...)
	res := resource.NewWithAttributes(semconv.SchemaURL, resourceAttrs...)

	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if t.spanExporter != nil {
		if t.syncExport {
			providerOpts = append(providerOpts, sdktrace.WithSyncer(t.spanExporter))
		} else {
			providerOpts = append(providerOpts, sdktrace.WithBatcher(t.spanExporter))
		}
	}
	t.tracerProvider = sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(t.tracerProvider)

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if t.metricReader != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(t.metricReader))
	}
	t.meterProvider = sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(t.meterProvider)

	t.initialized = true

	slog.DebugContext(ctx, "OpenTelemetry initialized", "service", serviceName)
	return nil
}

// GetMeterProvider returns the installed meter provider, or nil before InitTelemetry.
func (t *Telemetry) GetMeterProvider() *sdkmetric.MeterProvider {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meterProvider
}

// ShutdownTelemetry flushes and stops the providers.
func (t *Telemetry) ShutdownTelemetry(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return nil
	}
	var errs []error
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	t.initialized = false
	return errors.Join(errs...)
}
