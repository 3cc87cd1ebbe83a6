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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrKeyPool   = "rdbc.pool"
	attrKeyReason = "rdbc.release.reason"
	attrKeyKind   = "rdbc.query.kind"
	attrKeyStatus = "rdbc.status"
)

// Metrics groups the instruments recorded by connections and statements.
// The zero value records nothing, so callers never need nil checks.
type Metrics struct {
	acquired metric.Int64Counter
	released metric.Int64Counter
	queries  metric.Int64Counter
}

// NewMetrics creates the instruments on m.
func NewMetrics(m metric.Meter) (Metrics, error) {
	acquired, err := m.Int64Counter(
		"rdbc.session.acquired",
		metric.WithDescription("Number of sessions acquired from a session pool."),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return Metrics{}, err
	}
	released, err := m.Int64Counter(
		"rdbc.session.released",
		metric.WithDescription("Number of sessions returned to a session pool."),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return Metrics{}, err
	}
	queries, err := m.Int64Counter(
		"rdbc.query.count",
		metric.WithDescription("Number of queries executed, by kind and status."),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{acquired: acquired, released: released, queries: queries}, nil
}

// DefaultMetrics creates the instruments on the global meter provider.
// Instrument creation errors leave the affected instruments unset.
func DefaultMetrics() Metrics {
	m, _ := NewMetrics(otel.Meter(tracingServiceName))
	return m
}

// SessionAcquired records one session taken from pool.
func (m Metrics) SessionAcquired(ctx context.Context, pool string) {
	if m.acquired == nil {
		return
	}
	m.acquired.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKeyPool, pool)))
}

// SessionReleased records one session returned to pool.
func (m Metrics) SessionReleased(ctx context.Context, pool, reason string) {
	if m.released == nil {
		return
	}
	m.released.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKeyPool, pool),
		attribute.String(attrKeyReason, reason),
	))
}

// QueryExecuted records one query of the given kind ("scheme", "data", "stream").
func (m Metrics) QueryExecuted(ctx context.Context, kind string, err error) {
	if m.queries == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.queries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKeyKind, kind),
		attribute.String(attrKeyStatus, status),
	))
}
