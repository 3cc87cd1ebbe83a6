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

// Package conn implements a logical database connection as a state machine
// over a session-pooled client.
//
// A Connection is Outside a transaction, Inside one, or Closed. Operations
// that stream results return immediately and run in the background; the
// connection's state is written back, and any borrowed session released,
// before the stream delivers its terminal signal.
//
// Concurrency: a Connection serves a single writer. The caller must not
// start an operation before the previous one finished (its error returned
// or its stream terminated). Reading CurrentState is always safe.
package conn

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/query"
	"github.com/multigres/rdbc/go/rdbc/result"
	"github.com/multigres/rdbc/go/rdbc/statement"
	"github.com/multigres/rdbc/go/rdbc/stream"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

// Connection is the application facing side of a connection.
type Connection struct {
	env   *Env
	state atomic.Pointer[ConnectionState]
}

// New returns a connection starting in initial.
func New(env *Env, initial ConnectionState) *Connection {
	c := &Connection{env: env}
	c.state.Store(&initial)
	return c
}

// Open returns a connection outside of any transaction, using the env's
// default settings.
func Open(env *Env) *Connection {
	return New(env, NewOutside(env, env.DefaultTxSettings()))
}

// CurrentState returns the connection's state.
func (c *Connection) CurrentState() ConnectionState {
	return *c.state.Load()
}

func (c *Connection) setState(s ConnectionState) {
	c.state.Store(&s)
}

// IsAutoCommit reports whether statements outside of a transaction commit
// on their own. A closed connection reports false.
func (c *Connection) IsAutoCommit() bool {
	return c.CurrentState().TxSettings().AutoCommit()
}

func (c *Connection) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(
		attribute.String("rdbc.conn.state", stateName(c.CurrentState())),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

// transition runs op on the current state and installs the state it
// returns, also on failure.
func (c *Connection) transition(ctx context.Context, name string, op func(context.Context, ConnectionState) (ConnectionState, error)) error {
	ctx, span := c.startSpan(ctx, name)
	next, err := op(ctx, c.CurrentState())
	c.setState(next)
	endSpan(span, err)
	return err
}

// BeginTransaction starts a transaction in the settings' mode. Inside a
// transaction it fails with a ValidationError.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	return c.transition(ctx, "rdbc.conn.begin", func(ctx context.Context, s ConnectionState) (ConnectionState, error) {
		return s.beginTransaction(ctx)
	})
}

// CommitTransaction commits the open transaction. Outside of a transaction
// it does nothing.
func (c *Connection) CommitTransaction(ctx context.Context) error {
	return c.transition(ctx, "rdbc.conn.commit", func(ctx context.Context, s ConnectionState) (ConnectionState, error) {
		return s.commitTransaction(ctx)
	})
}

// RollbackTransaction rolls back the open transaction. Outside of a
// transaction it does nothing.
func (c *Connection) RollbackTransaction(ctx context.Context) error {
	return c.transition(ctx, "rdbc.conn.rollback", func(ctx context.Context, s ConnectionState) (ConnectionState, error) {
		return s.rollbackTransaction(ctx)
	})
}

// SetAutoCommit updates the auto-commit flag. It never ends an open
// transaction.
func (c *Connection) SetAutoCommit(ctx context.Context, v bool) error {
	return c.transition(ctx, "rdbc.conn.set_auto_commit", func(_ context.Context, s ConnectionState) (ConnectionState, error) {
		return s.withAutoCommit(v)
	})
}

// Close releases the session of an open transaction and closes the
// connection. Closing a closed connection succeeds.
func (c *Connection) Close(ctx context.Context) error {
	return c.transition(ctx, "rdbc.conn.close", func(ctx context.Context, s ConnectionState) (ConnectionState, error) {
		return s.close(ctx)
	})
}

// ExecuteSchemeQuery runs a schema change. The stream yields one result
// with RowsUpdated 0.
func (c *Connection) ExecuteSchemeQuery(ctx context.Context, text string) *stream.Stream[*result.Result] {
	state := c.CurrentState()
	if _, ok := state.(Closed); ok {
		return stream.Failed[*result.Result](mterrors.ErrConnectionClosed)
	}
	s, sink := stream.New[*result.Result]()
	go func() {
		ctx, span := c.startSpan(ctx, "rdbc.conn.execute_scheme_query")
		next, err := state.executeSchemeQuery(ctx, text)
		c.setState(next)
		c.env.metrics.QueryExecuted(ctx, "scheme", err)
		endSpan(span, err)
		if err != nil {
			sink.Error(err)
			return
		}
		sink.Next(ctx, result.NewScheme())
		sink.Complete()
	}()
	return s
}

// ExecuteDataQuery runs a data query with the connection's transaction
// control. ops lists the operation type of each statement of text; the
// stream yields one result per entry. With no ops the results follow the
// returned result sets.
func (c *Connection) ExecuteDataQuery(ctx context.Context, text string, params client.Params, ops []query.OperationType) *stream.Stream[*result.Result] {
	state := c.CurrentState()
	if _, ok := state.(Closed); ok {
		return stream.Failed[*result.Result](mterrors.ErrConnectionClosed)
	}
	s, sink := stream.New[*result.Result]()
	go func() {
		ctx, span := c.startSpan(ctx, "rdbc.conn.execute_data_query")
		res, next, err := state.executeDataQuery(ctx, text, params)
		c.setState(next)
		c.env.metrics.QueryExecuted(ctx, "data", err)
		endSpan(span, err)
		if err != nil {
			sink.Error(err)
			return
		}
		for _, r := range dataResults(res, ops) {
			if !sink.Next(ctx, r) {
				break
			}
		}
		sink.Complete()
	}()
	return s
}

func dataResults(res *client.DataQueryResult, ops []query.OperationType) []*result.Result {
	if len(ops) == 0 {
		out := make([]*result.Result, len(res.ResultSets))
		for i, set := range res.ResultSets {
			out[i] = result.FromResultSet(set, set.HasRows())
		}
		return out
	}
	out := make([]*result.Result, len(ops))
	for i, op := range ops {
		if op.IsScheme() {
			out[i] = result.NewScheme()
			continue
		}
		var set *sqltypes.Result
		if i < len(res.ResultSets) {
			set = res.ResultSets[i]
		}
		rows := op.ReturnsRows() || (op == query.Unknown && set.HasRows())
		out[i] = result.FromResultSet(set, rows)
	}
	return out
}

// CreateStatement parses text and returns a DDL statement when every
// statement in it changes the schema, a DML statement otherwise. Statements
// run on their own query session, independent of the connection's
// transaction.
func (c *Connection) CreateStatement(text string) (statement.Statement, error) {
	if _, ok := c.CurrentState().(Closed); ok {
		return nil, mterrors.ErrConnectionClosed
	}
	if c.env.queryPool == nil {
		return nil, mterrors.NewValidationError("no query session pool configured")
	}
	q, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	if q.IsScheme() {
		return statement.NewDDL(q, c.env.queryPool, c.env.statementOptions()...), nil
	}
	return statement.NewDML(q, c.env.queryPool, c.env.statementOptions()...), nil
}

func stateName(s ConnectionState) string {
	switch s.(type) {
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	default:
		return "closed"
	}
}
