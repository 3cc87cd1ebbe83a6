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

	"google.golang.org/grpc/codes"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/settings"
)

// Outside is the state without an open transaction. It holds no session;
// each operation borrows one for the duration of the call.
type Outside struct {
	env      *Env
	settings settings.TxSettings
}

// NewOutside returns the Outside state with the given settings.
func NewOutside(env *Env, s settings.TxSettings) Outside {
	return Outside{env: env, settings: s}
}

func (o Outside) TxSettings() settings.TxSettings { return o.settings }

func (o Outside) executeSchemeQuery(ctx context.Context, text string) (ConnectionState, error) {
	session, err := o.env.acquire(ctx)
	if err != nil {
		return o, err
	}
	err = session.ExecuteSchemeQuery(ctx, text, o.env.operation())
	o.env.release(ctx, session, reasonFor(err))
	return o, mterrors.FromClient("execute scheme query", err)
}

// executeDataQuery runs the query with the settings' transaction control.
// When the response carries a transaction id the server kept a transaction
// open: the session moves into the returned Inside state, which is no
// longer auto-committing. Otherwise the session is released.
func (o Outside) executeDataQuery(ctx context.Context, text string, params client.Params) (*client.DataQueryResult, ConnectionState, error) {
	session, err := o.env.acquire(ctx)
	if err != nil {
		return nil, o, err
	}
	res, err := session.ExecuteDataQuery(ctx, text, o.settings.TxControl(), params, o.env.operation())
	if err != nil {
		o.env.release(ctx, session, releaseError)
		return nil, o, mterrors.FromClient("execute data query", err)
	}
	if res == nil {
		res = &client.DataQueryResult{}
	}
	if res.TxID != "" {
		o.env.logger.DebugContext(ctx, "data query opened a transaction",
			"tx_id", res.TxID, "session_id", session.ID())
		return res, NewInside(o.env, res.TxID, session, o.settings.WithAutoCommit(false)), nil
	}
	o.env.release(ctx, session, releaseDone)
	return res, o, nil
}

func (o Outside) beginTransaction(ctx context.Context) (ConnectionState, error) {
	session, err := o.env.acquire(ctx)
	if err != nil {
		return o, err
	}
	tx, err := session.BeginTransaction(ctx, o.settings.Mode(), o.env.operation())
	if err == nil && tx.ID == "" {
		err = mterrors.New(codes.Internal, "begin transaction returned an empty transaction id")
	}
	if err != nil {
		o.env.release(ctx, session, releaseError)
		return o, mterrors.FromClient("begin transaction", err)
	}
	o.env.logger.DebugContext(ctx, "began transaction", "tx_id", tx.ID, "session_id", session.ID())
	return NewInside(o.env, tx.ID, session, o.settings), nil
}

// Without a transaction there is nothing to commit or roll back.
func (o Outside) commitTransaction(context.Context) (ConnectionState, error) { return o, nil }

func (o Outside) rollbackTransaction(context.Context) (ConnectionState, error) { return o, nil }

func (o Outside) withAutoCommit(v bool) (ConnectionState, error) {
	return NewOutside(o.env, o.settings.WithAutoCommit(v)), nil
}

func (o Outside) close(context.Context) (ConnectionState, error) {
	return ClosedState, nil
}

func (o Outside) String() string {
	return fmt.Sprintf("Outside{%s}", o.settings)
}
