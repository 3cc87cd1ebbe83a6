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

// Package pgclient implements the session-pooled database client over a
// pgx connection pool.
//
// A session is one pooled connection. Transactions are tracked per session
// under a generated id, so the connection state machine can refer to them
// the way it refers to server issued transaction ids.
package pgclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// Client is a pool of PostgreSQL sessions.
type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ client.SessionPool      = (*Client)(nil)
	_ client.QuerySessionPool = (*Client)(nil)
)

// Option configures a Client.
type Option func(*options)

type options struct {
	maxConns int32
	minConns int32
	logger   *slog.Logger
}

// WithMaxConns caps the number of pooled connections.
func WithMaxConns(n int32) Option {
	return func(o *options) { o.maxConns = n }
}

// WithMinConns keeps at least n connections open.
func WithMinConns(n int32) Option {
	return func(o *options) { o.minConns = n }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New connects to the database at dsn and checks it is reachable.
func New(ctx context.Context, dsn string, opts ...Option) (*Client, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}
	if o.minConns > 0 {
		cfg.MinConns = o.minConns
	}
	cfg.ConnConfig.OnNotice = noticeHandler(o.logger)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	o.logger.InfoContext(ctx, "connected to database",
		"host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database, "max_conns", cfg.MaxConns)
	return &Client{pool: pool, logger: o.logger}, nil
}

// Close closes every pooled connection. Sessions must be closed first.
func (c *Client) Close() {
	c.pool.Close()
}

func (c *Client) acquire(ctx context.Context, settings client.OperationSettings) (*Session, error) {
	ctx, cancel := withClientTimeout(ctx, settings)
	defer cancel()
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return newSession(conn, c.logger), nil
}

// AcquireSession implements client.SessionPool.
func (c *Client) AcquireSession(ctx context.Context, settings client.OperationSettings) (client.Session, error) {
	return c.acquire(ctx, settings)
}

// AcquireQuerySession implements client.QuerySessionPool.
func (c *Client) AcquireQuerySession(ctx context.Context, settings client.OperationSettings) (client.QuerySession, error) {
	return c.acquire(ctx, settings)
}

// noticeHandler logs the notices a server sends while running a statement.
// They are never reported as issues, so they cannot fail the statement.
func noticeHandler(logger *slog.Logger) pgconn.NoticeHandler {
	return func(pc *pgconn.PgConn, n *pgconn.Notice) {
		diag := diagnosticFromNotice(n)
		issue := diag.Issue()
		level := slog.LevelInfo
		if issue.Severity == mterrors.SeverityWarning {
			level = slog.LevelWarn
		}
		attrs := []any{"sqlstate", diag.SQLSTATE(), "severity", diag.Severity}
		if diag.Hint != "" {
			attrs = append(attrs, "hint", diag.Hint)
		}
		if pc != nil {
			attrs = append(attrs, "pid", pc.PID())
		}
		logger.Log(context.Background(), level, issue.Message, attrs...)
	}
}

func withClientTimeout(ctx context.Context, settings client.OperationSettings) (context.Context, context.CancelFunc) {
	if settings.ClientTimeout > 0 {
		return context.WithTimeout(ctx, settings.ClientTimeout)
	}
	return context.WithCancel(ctx)
}
