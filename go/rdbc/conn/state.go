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

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/settings"
)

// ConnectionState is the state of a connection: Outside, Inside or Closed.
// States are immutable values. Every operation returns the state that
// replaces the current one, which may be the same value.
//
// Every session a state borrows is released before the operation returns,
// except the one an Inside state holds for its transaction. That session is
// released exactly once, when the transaction ends or the connection closes.
type ConnectionState interface {
	// TxSettings returns the transaction settings. Closed returns the zero
	// value.
	TxSettings() settings.TxSettings

	executeSchemeQuery(ctx context.Context, text string) (ConnectionState, error)
	executeDataQuery(ctx context.Context, text string, params client.Params) (*client.DataQueryResult, ConnectionState, error)
	beginTransaction(ctx context.Context) (ConnectionState, error)
	commitTransaction(ctx context.Context) (ConnectionState, error)
	rollbackTransaction(ctx context.Context) (ConnectionState, error)
	withAutoCommit(v bool) (ConnectionState, error)
	close(ctx context.Context) (ConnectionState, error)
}

// Closed is the terminal state. Every operation fails with
// mterrors.ErrConnectionClosed without any I/O; closing again succeeds.
type Closed struct{}

// ClosedState is the Closed value.
var ClosedState ConnectionState = Closed{}

func (Closed) TxSettings() settings.TxSettings { return settings.TxSettings{} }

func (c Closed) executeSchemeQuery(context.Context, string) (ConnectionState, error) {
	return c, mterrors.ErrConnectionClosed
}

func (c Closed) executeDataQuery(context.Context, string, client.Params) (*client.DataQueryResult, ConnectionState, error) {
	return nil, c, mterrors.ErrConnectionClosed
}

func (c Closed) beginTransaction(context.Context) (ConnectionState, error) {
	return c, mterrors.ErrConnectionClosed
}

func (c Closed) commitTransaction(context.Context) (ConnectionState, error) {
	return c, mterrors.ErrConnectionClosed
}

func (c Closed) rollbackTransaction(context.Context) (ConnectionState, error) {
	return c, mterrors.ErrConnectionClosed
}

func (c Closed) withAutoCommit(bool) (ConnectionState, error) {
	return c, mterrors.ErrConnectionClosed
}

func (c Closed) close(context.Context) (ConnectionState, error) {
	return c, nil
}

func (Closed) String() string { return "Closed" }
