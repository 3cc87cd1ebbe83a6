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

// Package client contains the capability set rdbc needs from the external
// database client.
//
// The client owns the transport, the session pool, retries and the wire
// format. rdbc only borrows sessions, runs calls on them and gives them back.
//
// This interface is implemented by:
// - pgclient (PostgreSQL through pgx)
// - fakeclient (in-memory, for tests)
//
// Server side failures must be reported as *mterrors.StatusError (possibly
// wrapped). Any other error is treated as a transport error and is propagated
// to the application unchanged.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/common/sqltypes"
)

// TxMode is the isolation/consistency level requested for a transaction.
type TxMode int

const (
	// TxModeNone runs statements outside of any transaction.
	TxModeNone TxMode = iota
	TxModeSerializableRW
	TxModeSnapshotRO
	TxModeStaleRO
	TxModeOnlineRO
	TxModeOnlineInconsistentRO
)

var txModeNames = map[TxMode]string{
	TxModeNone:                 "none",
	TxModeSerializableRW:       "serializable_rw",
	TxModeSnapshotRO:           "snapshot_ro",
	TxModeStaleRO:              "stale_ro",
	TxModeOnlineRO:             "online_ro",
	TxModeOnlineInconsistentRO: "online_inconsistent_ro",
}

func (m TxMode) String() string {
	if name, ok := txModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TxMode(%d)", int(m))
}

// ParseTxMode parses the String form of a TxMode.
func ParseTxMode(s string) (TxMode, error) {
	for mode, name := range txModeNames {
		if name == s {
			return mode, nil
		}
	}
	return TxModeNone, fmt.Errorf("unknown transaction mode %q", s)
}

// ReadOnly reports whether transactions in this mode cannot write.
func (m TxMode) ReadOnly() bool {
	return m != TxModeSerializableRW && m != TxModeNone
}

// TxControl tells the client which transaction a data query runs in.
type TxControl struct {
	// TxID continues an open transaction when non-empty.
	TxID string

	// Begin is the mode of the transaction to start when TxID is empty.
	// TxModeNone means no transaction is started.
	Begin TxMode

	// CommitTx commits the transaction together with the statement.
	CommitTx bool
}

// OperationSettings are passed with every call to the client.
// Zero durations mean "client default".
type OperationSettings struct {
	OperationTimeout time.Duration
	CancelAfter      time.Duration
	ClientTimeout    time.Duration
}

// Param is one named parameter value.
type Param struct {
	Name  string
	Value any
}

// Params are the ordered parameters of one execution.
type Params []Param

// Values returns the parameter values in order.
func (p Params) Values() []any {
	if len(p) == 0 {
		return nil
	}
	values := make([]any, len(p))
	for i, param := range p {
		values[i] = param.Value
	}
	return values
}

// RowReader reads one row set. It is opaque to rdbc beyond this surface.
type RowReader interface {
	Columns() []sqltypes.Field
	Next() bool
	Values() []any
	Err() error
}

// DataQueryResult is the outcome of a data query.
type DataQueryResult struct {
	// TxID is set when the query left a transaction open on the session.
	TxID string

	// ResultSets holds one entry per statement of the query, in order.
	ResultSets []*sqltypes.Result
}

// Transaction identifies a transaction opened by BeginTransaction.
type Transaction struct {
	ID string
}

// Session is one pooled server session.
type Session interface {
	ID() string

	ExecuteSchemeQuery(ctx context.Context, text string, settings OperationSettings) error

	ExecuteDataQuery(
		ctx context.Context,
		text string,
		txControl TxControl,
		params Params,
		settings OperationSettings,
	) (*DataQueryResult, error)

	BeginTransaction(ctx context.Context, mode TxMode, settings OperationSettings) (Transaction, error)

	CommitTransaction(ctx context.Context, txID string, settings OperationSettings) error

	RollbackTransaction(ctx context.Context, txID string, settings OperationSettings) error

	// Close returns the session to its pool. It is idempotent and never fails
	// the caller's operation.
	Close()
}

// SessionPool hands out sessions.
type SessionPool interface {
	AcquireSession(ctx context.Context, settings OperationSettings) (Session, error)
}

// Part is one incremental fragment of a query result.
type Part struct {
	// Index is the position of the statement that produced the part.
	Index int

	// Result is the row set (or command outcome) carried by the part.
	Result *sqltypes.Result
}

// Reader returns a reader over the part's rows.
func (p Part) Reader() RowReader {
	return sqltypes.NewReader(p.Result)
}

// PartsHandler receives the parts of one query execution, followed by
// issues if the server reported any. Calls are made sequentially.
type PartsHandler interface {
	OnNextPart(ctx context.Context, part Part)
	OnIssues(ctx context.Context, issues []mterrors.Issue)
}

// QueryStream is a query ready to run.
type QueryStream interface {
	// Execute runs the query, feeding handler, and returns once the server
	// finished. A nil error is the completion signal.
	Execute(ctx context.Context, handler PartsHandler) error
}

// QuerySession is a session of the query service.
type QuerySession interface {
	ID() string

	CreateQuery(text string, mode TxMode, params Params) (QueryStream, error)

	// Close returns the session to its pool. It is idempotent.
	Close()
}

// QuerySessionPool hands out query sessions.
type QuerySessionPool interface {
	AcquireQuerySession(ctx context.Context, settings OperationSettings) (QuerySession, error)
}
