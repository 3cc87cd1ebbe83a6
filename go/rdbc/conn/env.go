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

package conn

import (
	"context"
	"log/slog"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/settings"
	"github.com/multigres/rdbc/go/rdbc/statement"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

const (
	poolSession = "session"

	releaseDone     = "done"
	releaseError    = "error"
	releaseClose    = "close"
	releaseCommit   = "commit"
	releaseRollback = "rollback"
)

// Env is what every state of a connection shares: the client pools, the
// limits passed with each call, the default transaction settings and the
// logging and metrics sinks. An Env is immutable and may back many
// connections.
type Env struct {
	pool       client.SessionPool
	queryPool  client.QuerySessionPool
	ops        settings.OperationsConfig
	txSettings settings.TxSettings
	logger     *slog.Logger
	metrics    telemetry.Metrics
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithOperationsConfig sets the limits passed with every client call.
func WithOperationsConfig(c settings.OperationsConfig) EnvOption {
	return func(e *Env) { e.ops = c }
}

// WithTxSettings sets the settings new connections start with.
func WithTxSettings(s settings.TxSettings) EnvOption {
	return func(e *Env) { e.txSettings = s }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) EnvOption {
	return func(e *Env) { e.logger = l }
}

// WithMetrics sets the instruments sessions and queries are counted on.
func WithMetrics(m telemetry.Metrics) EnvOption {
	return func(e *Env) { e.metrics = m }
}

// NewEnv returns an Env over pool, used for connection operations, and
// queryPool, used by statements. queryPool may be nil when no statements
// are created.
func NewEnv(pool client.SessionPool, queryPool client.QuerySessionPool, opts ...EnvOption) *Env {
	e := &Env{
		pool:       pool,
		queryPool:  queryPool,
		ops:        settings.DefaultOperationsConfig(),
		txSettings: settings.Default(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultTxSettings returns the settings new connections start with.
func (e *Env) DefaultTxSettings() settings.TxSettings {
	return e.txSettings
}

// OperationsConfig returns the limits passed with every client call.
func (e *Env) OperationsConfig() settings.OperationsConfig {
	return e.ops
}

func (e *Env) operation() client.OperationSettings {
	return e.ops.Operation()
}

func (e *Env) acquire(ctx context.Context) (client.Session, error) {
	session, err := e.pool.AcquireSession(ctx, e.operation())
	if err != nil {
		return nil, mterrors.FromClient("acquire session", err)
	}
	e.metrics.SessionAcquired(ctx, poolSession)
	e.logger.DebugContext(ctx, "acquired session", "session_id", session.ID())
	return session, nil
}

func (e *Env) release(ctx context.Context, session client.Session, reason string) {
	session.Close()
	e.metrics.SessionReleased(ctx, poolSession, reason)
	e.logger.DebugContext(ctx, "released session", "session_id", session.ID(), "reason", reason)
}

func (e *Env) statementOptions() []statement.Option {
	return []statement.Option{
		statement.WithLogger(e.logger),
		statement.WithOperationsConfig(e.ops),
		statement.WithMetrics(e.metrics),
	}
}

func reasonFor(err error) string {
	if err != nil {
		return releaseError
	}
	return releaseDone
}
