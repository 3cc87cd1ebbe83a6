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

package fakeclient

import (
	"context"
	"sync"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// ExecuteFunc scripts the behaviour of one query execution.
type ExecuteFunc func(ctx context.Context, text string, params client.Params, handler client.PartsHandler) error

// QuerySession is a scriptable client.QuerySession.
type QuerySession struct {
	id string

	// CreateErr makes CreateQuery fail synchronously.
	CreateErr error

	// ExecuteFunc runs every query created on this session. Nil delivers
	// nothing and completes.
	ExecuteFunc ExecuteFunc

	mu         sync.Mutex
	calls      []Call
	closeCount int
}

var _ client.QuerySession = (*QuerySession)(nil)

// NewQuerySession creates a query session whose queries complete empty.
func NewQuerySession(id string) *QuerySession {
	return &QuerySession{id: id}
}

// ID implements client.QuerySession.
func (s *QuerySession) ID() string { return s.id }

// CreateQuery implements client.QuerySession.
func (s *QuerySession) CreateQuery(text string, mode client.TxMode, params client.Params) (client.QueryStream, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: "CreateQuery", Text: text, Mode: mode, Params: params})
	s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	return &queryStream{session: s, text: text, params: params}, nil
}

// Close implements client.QuerySession.
func (s *QuerySession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
}

// Calls returns the recorded CreateQuery calls.
func (s *QuerySession) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CloseCount returns how many times Close was called.
func (s *QuerySession) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

type queryStream struct {
	session *QuerySession
	text    string
	params  client.Params
}

func (q *queryStream) Execute(ctx context.Context, handler client.PartsHandler) error {
	if q.session.ExecuteFunc == nil {
		return nil
	}
	return q.session.ExecuteFunc(ctx, q.text, q.params, handler)
}

// Deliver returns an ExecuteFunc that hands parts to the handler in order
// and completes successfully.
func Deliver(parts ...client.Part) ExecuteFunc {
	return func(ctx context.Context, _ string, _ client.Params, handler client.PartsHandler) error {
		for _, part := range parts {
			handler.OnNextPart(ctx, part)
		}
		return nil
	}
}

// DeliverIssues returns an ExecuteFunc that hands parts to the handler,
// then reports issues and fails with a status carrying them.
func DeliverIssues(code mterrors.Status, parts ...client.Part) ExecuteFunc {
	return func(ctx context.Context, _ string, _ client.Params, handler client.PartsHandler) error {
		for _, part := range parts {
			handler.OnNextPart(ctx, part)
		}
		handler.OnIssues(ctx, code.Issues)
		return code.Err()
	}
}
