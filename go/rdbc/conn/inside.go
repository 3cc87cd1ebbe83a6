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
	"fmt"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/settings"
)

// Inside is the state with an open transaction. It exclusively owns the
// session the transaction runs on.
type Inside struct {
	env      *Env
	txID     string
	session  client.Session
	settings settings.TxSettings
}

// NewInside returns the Inside state for transaction txID on session.
func NewInside(env *Env, txID string, session client.Session, s settings.TxSettings) Inside {
	return Inside{env: env, txID: txID, session: session, settings: s}
}

func (i Inside) TxSettings() settings.TxSettings { return i.settings }

// TxID returns the id of the open transaction.
func (i Inside) TxID() string { return i.txID }

// Session returns the session the transaction runs on.
func (i Inside) Session() client.Session { return i.session }

// abort ends the transaction after a failed statement. The transaction is
// unusable, so its session is released and the connection leaves it.
func (i Inside) abort(ctx context.Context, op string, err error) (ConnectionState, error) {
	i.env.logger.WarnContext(ctx, "statement failed inside transaction, releasing session",
		"tx_id", i.txID, "session_id", i.session.ID(), "error", err)
	i.env.release(ctx, i.session, releaseError)
	return NewOutside(i.env, i.settings), mterrors.FromClient(op, err)
}

func (i Inside) executeSchemeQuery(ctx context.Context, text string) (ConnectionState, error) {
	if err := i.session.ExecuteSchemeQuery(ctx, text, i.env.operation()); err != nil {
		return i.abort(ctx, "execute scheme query", err)
	}
	return i, nil
}

func (i Inside) executeDataQuery(ctx context.Context, text string, params client.Params) (*client.DataQueryResult, ConnectionState, error) {
	res, err := i.session.ExecuteDataQuery(ctx, text, i.settings.TxControlFor(i.txID), params, i.env.operation())
	if err != nil {
		next, err := i.abort(ctx, "execute data query", err)
		return nil, next, err
	}
	if res == nil {
		res = &client.DataQueryResult{}
	}
	return res, i, nil
}

func (i Inside) beginTransaction(context.Context) (ConnectionState, error) {
	return i, mterrors.NewValidationError("transaction already in progress")
}

// commitTransaction commits and always leaves the transaction, releasing
// the session whatever the outcome.
func (i Inside) commitTransaction(ctx context.Context) (ConnectionState, error) {
	err := i.session.CommitTransaction(ctx, i.txID, i.env.operation())
	if err != nil {
		i.env.release(ctx, i.session, releaseError)
		return NewOutside(i.env, i.settings), mterrors.FromClient("commit transaction", err)
	}
	i.env.release(ctx, i.session, releaseCommit)
	return NewOutside(i.env, i.settings), nil
}

// rollbackTransaction rolls back and always leaves the transaction,
// releasing the session whatever the outcome.
func (i Inside) rollbackTransaction(ctx context.Context) (ConnectionState, error) {
	err := i.session.RollbackTransaction(ctx, i.txID, i.env.operation())
	if err != nil {
		i.env.release(ctx, i.session, releaseError)
		return NewOutside(i.env, i.settings), mterrors.FromClient("rollback transaction", err)
	}
	i.env.release(ctx, i.session, releaseRollback)
	return NewOutside(i.env, i.settings), nil
}

// withAutoCommit only updates the settings; the open transaction continues.
func (i Inside) withAutoCommit(v bool) (ConnectionState, error) {
	return NewInside(i.env, i.txID, i.session, i.settings.WithAutoCommit(v)), nil
}

func (i Inside) close(ctx context.Context) (ConnectionState, error) {
	i.env.release(ctx, i.session, releaseClose)
	return ClosedState, nil
}

func (i Inside) String() string {
	return fmt.Sprintf("Inside{tx_id = %s, session = %s, %s}", i.txID, i.session.ID(), i.settings)
}
