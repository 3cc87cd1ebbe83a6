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

package pgclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/tools/ctxutil"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

const releaseTimeout = 5 * time.Second

// Session is one pooled connection. It serves both the transactional
// session API and query streams.
type Session struct {
	id     string
	conn   *pgxpool.Conn
	logger *slog.Logger

	mu     sync.Mutex
	tx     pgx.Tx
	txID   string
	closed bool
}

var (
	_ client.Session      = (*Session)(nil)
	_ client.QuerySession = (*Session)(nil)
)

func newSession(conn *pgxpool.Conn, logger *slog.Logger) *Session {
	return &Session{id: uuid.NewString(), conn: conn, logger: logger}
}

// ID implements client.Session.
func (s *Session) ID() string { return s.id }

func txOptions(mode client.TxMode) pgx.TxOptions {
	switch mode {
	case client.TxModeSerializableRW:
		return pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}
	case client.TxModeSnapshotRO:
		return pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	case client.TxModeStaleRO, client.TxModeOnlineRO, client.TxModeOnlineInconsistentRO:
		return pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}
	}
	return pgx.TxOptions{}
}

// toClientError turns a server error into a status error. Other errors are
// returned unchanged.
func toClientError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return diagnosticFromPgError(pgErr).Status().Err()
	}
	return err
}

func diagnosticFromPgError(e *pgconn.PgError) *mterrors.PgDiagnostic {
	return diagnostic('E', e)
}

func diagnosticFromNotice(n *pgconn.Notice) *mterrors.PgDiagnostic {
	return diagnostic('N', (*pgconn.PgError)(n))
}

func diagnostic(messageType byte, e *pgconn.PgError) *mterrors.PgDiagnostic {
	return &mterrors.PgDiagnostic{
		MessageType:      messageType,
		Severity:         e.Severity,
		Code:             e.Code,
		Message:          e.Message,
		Detail:           e.Detail,
		Hint:             e.Hint,
		Position:         e.Position,
		InternalPosition: e.InternalPosition,
		InternalQuery:    e.InternalQuery,
		Where:            e.Where,
		Schema:           e.SchemaName,
		Table:            e.TableName,
		Column:           e.ColumnName,
		DataType:         e.DataTypeName,
		Constraint:       e.ConstraintName,
	}
}

func statusErr(code codes.Code, format string, args ...any) error {
	return mterrors.NewStatus(code, mterrors.Issue{
		Severity: mterrors.SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}).Err()
}

// checkTx verifies txID names the open transaction. The caller holds mu.
func (s *Session) checkTx(txID string) error {
	if s.tx == nil || s.txID != txID {
		return statusErr(codes.NotFound, "transaction %s not found on session %s", txID, s.id)
	}
	return nil
}

// begin opens a transaction. The caller holds mu.
func (s *Session) begin(ctx context.Context, mode client.TxMode) error {
	if s.tx != nil {
		return statusErr(codes.FailedPrecondition, "transaction %s already open on session %s", s.txID, s.id)
	}
	tx, err := s.conn.BeginTx(ctx, txOptions(mode))
	if err != nil {
		return toClientError(err)
	}
	s.tx, s.txID = tx, uuid.NewString()
	return nil
}

// endTx forgets the open transaction. The caller holds mu.
func (s *Session) endTx() {
	s.tx, s.txID = nil, ""
}

// abortTx rolls back the open transaction after a failed statement. The
// caller holds mu.
func (s *Session) abortTx(ctx context.Context) {
	if s.tx == nil {
		return
	}
	ctx, cancel := ctxutil.Cleanup(ctx, releaseTimeout)
	defer cancel()
	ctx, span := ctxutil.StartLinkedSpan(ctx, telemetry.Tracer(), "rdbc.pgclient.rollback",
		trace.WithAttributes(attribute.String("rdbc.session.id", s.id)))
	defer span.End()
	if err := s.tx.Rollback(ctx); err != nil {
		span.RecordError(err)
		s.logger.WarnContext(ctx, "rollback after failed statement failed",
			"session_id", s.id, "tx_id", s.txID, "error", err)
	}
	s.endTx()
}

// ExecuteSchemeQuery implements client.Session.
func (s *Session) ExecuteSchemeQuery(ctx context.Context, text string, settings client.OperationSettings) error {
	ctx, cancel := withClientTimeout(ctx, settings)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(ctx, text); err != nil {
		s.abortTx(ctx)
		return toClientError(err)
	}
	return nil
}

// ExecuteDataQuery implements client.Session.
func (s *Session) ExecuteDataQuery(
	ctx context.Context,
	text string,
	txc client.TxControl,
	params client.Params,
	settings client.OperationSettings,
) (*client.DataQueryResult, error) {
	ctx, cancel := withClientTimeout(ctx, settings)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case txc.TxID != "":
		if err := s.checkTx(txc.TxID); err != nil {
			return nil, err
		}
	case txc.Begin != client.TxModeNone:
		if err := s.begin(ctx, txc.Begin); err != nil {
			return nil, err
		}
	}

	sets, err := s.collect(ctx, text, params)
	if err != nil {
		s.abortTx(ctx)
		return nil, toClientError(err)
	}

	if s.tx != nil && txc.CommitTx {
		err := s.tx.Commit(ctx)
		s.endTx()
		if err != nil {
			return nil, toClientError(err)
		}
	}
	return &client.DataQueryResult{TxID: s.txID, ResultSets: sets}, nil
}

// collect runs text and materializes every result set.
func (s *Session) collect(ctx context.Context, text string, params client.Params) ([]*sqltypes.Result, error) {
	var sets resultSets
	err := s.run(ctx, text, params, sets.add)
	return sets, err
}

// BeginTransaction implements client.Session.
func (s *Session) BeginTransaction(ctx context.Context, mode client.TxMode, settings client.OperationSettings) (client.Transaction, error) {
	ctx, cancel := withClientTimeout(ctx, settings)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx, mode); err != nil {
		return client.Transaction{}, err
	}
	return client.Transaction{ID: s.txID}, nil
}

// CommitTransaction implements client.Session.
func (s *Session) CommitTransaction(ctx context.Context, txID string, settings client.OperationSettings) error {
	ctx, cancel := withClientTimeout(ctx, settings)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTx(txID); err != nil {
		return err
	}
	err := s.tx.Commit(ctx)
	s.endTx()
	return toClientError(err)
}

// RollbackTransaction implements client.Session.
func (s *Session) RollbackTransaction(ctx context.Context, txID string, settings client.OperationSettings) error {
	ctx, cancel := withClientTimeout(ctx, settings)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTx(txID); err != nil {
		return err
	}
	err := s.tx.Rollback(ctx)
	s.endTx()
	return toClientError(err)
}

// Close rolls back an open transaction and returns the connection to the
// pool. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.tx != nil {
		s.logger.DebugContext(context.Background(), "rolling back open transaction on session close", "session_id", s.id, "tx_id", s.txID)
		s.abortTx(context.Background())
	}
	s.conn.Release()
}
