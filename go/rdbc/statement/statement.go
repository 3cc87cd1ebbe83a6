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

// Package statement compiles a query and its bindings into executions on a
// query session and streams their results.
package statement

import (
	"context"
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/binding"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/query"
	"github.com/multigres/rdbc/go/rdbc/result"
	"github.com/multigres/rdbc/go/rdbc/settings"
	"github.com/multigres/rdbc/go/rdbc/stream"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

// ErrDDLBinding is returned by every binding call on a DDL statement.
var ErrDDLBinding = mterrors.NewValidationError("operation not supported for DDL statement")

// Statement is one executable query. A statement is not safe for concurrent
// use and is executed once.
type Statement interface {
	Bind(index int, v any) error
	BindName(name string, v any) error
	BindNull(index int, t reflect.Type) error
	BindNullName(name string, t reflect.Type) error
	// Add finishes the current binding and starts the next one of a batch.
	Add() error
	AddObserver(o Observer)
	// Execute returns immediately. Results are streamed as the query runs;
	// the query session is released before the stream terminates.
	Execute(ctx context.Context) *stream.Stream[*result.Result]
}

// Option configures a statement.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	ops     settings.OperationsConfig
	metrics telemetry.Metrics
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOperationsConfig sets the limits passed with the session acquisition.
func WithOperationsConfig(c settings.OperationsConfig) Option {
	return func(o *options) { o.ops = c }
}

// WithMetrics sets the instruments session and query counts are recorded on.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

const poolQuery = "query"

type execution struct {
	text   string
	params client.Params
}

// executor runs compiled executions on one query session.
type executor struct {
	kind      string
	pool      client.QuerySessionPool
	opts      options
	observers []Observer
}

func newExecutor(kind string, pool client.QuerySessionPool, opts []Option) executor {
	o := options{logger: slog.Default(), ops: settings.DefaultOperationsConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return executor{kind: kind, pool: pool, opts: o}
}

func (e *executor) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *executor) start(ctx context.Context, execs []execution) *stream.Stream[*result.Result] {
	s, sink := stream.New[*result.Result]()
	observers := append([]Observer(nil), e.observers...)
	go e.run(ctx, execs, observers, sink)
	return s
}

func (e *executor) run(ctx context.Context, execs []execution, observers []Observer, sink *stream.Sink[*result.Result]) {
	ctx, span := telemetry.Tracer().Start(ctx, "rdbc.statement.execute")
	span.SetAttributes(
		attribute.String("rdbc.statement.kind", e.kind),
		attribute.Int("rdbc.statement.executions", len(execs)),
	)

	err := e.runOnSession(ctx, execs, observers, sink)
	e.opts.metrics.QueryExecuted(ctx, e.kind, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if err != nil {
		sink.Error(err)
		return
	}
	sink.Complete()
}

// runOnSession borrows a query session, runs every execution in order and
// returns the session before reporting the outcome.
func (e *executor) runOnSession(ctx context.Context, execs []execution, observers []Observer, sink *stream.Sink[*result.Result]) (err error) {
	session, err := e.pool.AcquireQuerySession(ctx, e.opts.ops.Operation())
	if err != nil {
		return mterrors.FromClient("acquire query session", err)
	}
	e.opts.metrics.SessionAcquired(ctx, poolQuery)
	defer func() {
		session.Close()
		e.opts.metrics.SessionReleased(ctx, poolQuery, releaseReason(err))
	}()

	for i, exec := range execs {
		if sink.Cancelled() {
			e.opts.logger.DebugContext(ctx, "statement cancelled, skipping remaining executions",
				"session_id", session.ID(), "remaining", len(execs)-i)
			return nil
		}
		qs, err := session.CreateQuery(exec.text, client.TxModeNone, exec.params)
		if err != nil {
			return mterrors.FromClient("create query", err)
		}
		collector := NewPartCollector(observers, sink, e.opts.logger)
		if err := qs.Execute(ctx, collector); err != nil {
			if cerr := collector.Err(); cerr != nil {
				return cerr
			}
			return mterrors.FromClient("execute query", err)
		}
		if err := collector.Err(); err != nil {
			return err
		}
	}
	return nil
}

func releaseReason(err error) string {
	if err != nil {
		return "error"
	}
	return "done"
}

// DML is a data statement. Its bindings are validated before any session is
// touched and each binding of a batch is executed in order on one query
// session, outside of any transaction.
type DML struct {
	executor
	q        *query.Query
	bindings *binding.Bindings
}

var _ Statement = (*DML)(nil)

// NewDML returns a data statement for q.
func NewDML(q *query.Query, pool client.QuerySessionPool, opts ...Option) *DML {
	return &DML{
		executor: newExecutor("dml", pool, opts),
		q:        q,
		bindings: q.NewBindings(),
	}
}

func (s *DML) Bind(index int, v any) error { return s.bindings.Current().Bind(index, v) }

func (s *DML) BindName(name string, v any) error { return s.bindings.Current().BindName(name, v) }

func (s *DML) BindNull(index int, t reflect.Type) error {
	return s.bindings.Current().BindNull(index, t)
}

func (s *DML) BindNullName(name string, t reflect.Type) error {
	return s.bindings.Current().BindNullName(name, t)
}

func (s *DML) Add() error { return s.bindings.Add() }

// Execute implements Statement. A binding that fails validation yields an
// already failed stream.
func (s *DML) Execute(ctx context.Context) *stream.Stream[*result.Result] {
	all := s.bindings.All()
	execs := make([]execution, 0, len(all))
	for _, b := range all {
		text, params, err := s.q.Compile(b)
		if err != nil {
			return stream.Failed[*result.Result](err)
		}
		execs = append(execs, execution{text: text, params: params})
	}
	return s.start(ctx, execs)
}

// DDL is a schema statement. It takes no parameters: every binding call
// fails with ErrDDLBinding.
type DDL struct {
	executor
	q *query.Query
}

var _ Statement = (*DDL)(nil)

// NewDDL returns a schema statement for q.
func NewDDL(q *query.Query, pool client.QuerySessionPool, opts ...Option) *DDL {
	return &DDL{executor: newExecutor("ddl", pool, opts), q: q}
}

func (s *DDL) Bind(int, any) error { return ErrDDLBinding }

func (s *DDL) BindName(string, any) error { return ErrDDLBinding }

func (s *DDL) BindNull(int, reflect.Type) error { return ErrDDLBinding }

func (s *DDL) BindNullName(string, reflect.Type) error { return ErrDDLBinding }

func (s *DDL) Add() error { return ErrDDLBinding }

// Execute implements Statement.
func (s *DDL) Execute(ctx context.Context) *stream.Stream[*result.Result] {
	text, params, err := s.q.Compile(nil)
	if err != nil {
		return stream.Failed[*result.Result](err)
	}
	return s.start(ctx, []execution{{text: text, params: params}})
}
