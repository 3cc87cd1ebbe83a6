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

// Package fakeclient provides an in-memory implementation of the client
// capability set for tests.
//
// It records every call made on the sessions it hands out and how many times
// each session was closed, so tests can assert the session release invariant.
//
// Usage:
//
//	fake := fakeclient.New()
//	s := fakeclient.NewSession("s1")
//	s.DataQueryFunc = func(...) (*client.DataQueryResult, error) { ... }
//	fake.AddSession(s)
//	conn := conn.Open(conn.NewEnv(fake, fake))
package fakeclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// Call is one recorded client call.
type Call struct {
	Method    string
	Text      string
	TxID      string
	TxControl client.TxControl
	Mode      client.TxMode
	Params    client.Params
}

// Client implements client.SessionPool and client.QuerySessionPool.
// Sessions added with AddSession/AddQuerySession are handed out in order;
// when the queue is empty a default session is created.
type Client struct {
	mu sync.Mutex

	pending      []*Session
	pendingQuery []*QuerySession

	handedOut      []*Session
	handedOutQuery []*QuerySession

	acquireErr      error
	acquireQueryErr error
}

var (
	_ client.SessionPool      = (*Client)(nil)
	_ client.QuerySessionPool = (*Client)(nil)
)

// New creates an empty fake client.
func New() *Client {
	return &Client{}
}

// AddSession queues sessions to be returned by AcquireSession.
func (c *Client) AddSession(sessions ...*Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, sessions...)
}

// AddQuerySession queues sessions to be returned by AcquireQuerySession.
func (c *Client) AddQuerySession(sessions ...*QuerySession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingQuery = append(c.pendingQuery, sessions...)
}

// SetAcquireError makes AcquireSession fail with err.
func (c *Client) SetAcquireError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireErr = err
}

// SetAcquireQueryError makes AcquireQuerySession fail with err.
func (c *Client) SetAcquireQueryError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireQueryErr = err
}

// AcquireSession implements client.SessionPool.
func (c *Client) AcquireSession(ctx context.Context, _ client.OperationSettings) (client.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquireErr != nil {
		return nil, c.acquireErr
	}
	var s *Session
	if len(c.pending) > 0 {
		s = c.pending[0]
		c.pending = c.pending[1:]
	} else {
		s = NewSession(fmt.Sprintf("session-%d", len(c.handedOut)+1))
	}
	c.handedOut = append(c.handedOut, s)
	return s, nil
}

// AcquireQuerySession implements client.QuerySessionPool.
func (c *Client) AcquireQuerySession(ctx context.Context, _ client.OperationSettings) (client.QuerySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquireQueryErr != nil {
		return nil, c.acquireQueryErr
	}
	var s *QuerySession
	if len(c.pendingQuery) > 0 {
		s = c.pendingQuery[0]
		c.pendingQuery = c.pendingQuery[1:]
	} else {
		s = NewQuerySession(fmt.Sprintf("query-session-%d", len(c.handedOutQuery)+1))
	}
	c.handedOutQuery = append(c.handedOutQuery, s)
	return s, nil
}

// Acquired returns how many sessions (of both kinds) were handed out.
func (c *Client) Acquired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handedOut) + len(c.handedOutQuery)
}

// Outstanding returns how many handed out sessions were never closed.
func (c *Client) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.handedOut {
		if s.CloseCount() == 0 {
			n++
		}
	}
	for _, s := range c.handedOutQuery {
		if s.CloseCount() == 0 {
			n++
		}
	}
	return n
}

// Session is a scriptable client.Session. Nil funcs succeed.
type Session struct {
	id string

	SchemeQueryFunc func(ctx context.Context, text string) error
	DataQueryFunc   func(ctx context.Context, text string, txc client.TxControl, params client.Params) (*client.DataQueryResult, error)
	BeginFunc       func(ctx context.Context, mode client.TxMode) (client.Transaction, error)
	CommitFunc      func(ctx context.Context, txID string) error
	RollbackFunc    func(ctx context.Context, txID string) error

	mu         sync.Mutex
	calls      []Call
	closeCount int
}

var _ client.Session = (*Session)(nil)

// NewSession creates a session whose calls all succeed.
func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// Calls returns the recorded calls, excluding Close.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CloseCount returns how many times Close was called.
func (s *Session) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// ID implements client.Session.
func (s *Session) ID() string { return s.id }

// ExecuteSchemeQuery implements client.Session.
func (s *Session) ExecuteSchemeQuery(ctx context.Context, text string, _ client.OperationSettings) error {
	s.record(Call{Method: "ExecuteSchemeQuery", Text: text})
	if s.SchemeQueryFunc != nil {
		return s.SchemeQueryFunc(ctx, text)
	}
	return nil
}

// ExecuteDataQuery implements client.Session.
func (s *Session) ExecuteDataQuery(ctx context.Context, text string, txc client.TxControl, params client.Params, _ client.OperationSettings) (*client.DataQueryResult, error) {
	s.record(Call{Method: "ExecuteDataQuery", Text: text, TxControl: txc, Params: params})
	if s.DataQueryFunc != nil {
		return s.DataQueryFunc(ctx, text, txc, params)
	}
	return &client.DataQueryResult{ResultSets: []*sqltypes.Result{{}}}, nil
}

// BeginTransaction implements client.Session.
func (s *Session) BeginTransaction(ctx context.Context, mode client.TxMode, _ client.OperationSettings) (client.Transaction, error) {
	s.record(Call{Method: "BeginTransaction", Mode: mode})
	if s.BeginFunc != nil {
		return s.BeginFunc(ctx, mode)
	}
	return client.Transaction{ID: "tx-" + s.id}, nil
}

// CommitTransaction implements client.Session.
func (s *Session) CommitTransaction(ctx context.Context, txID string, _ client.OperationSettings) error {
	s.record(Call{Method: "CommitTransaction", TxID: txID})
	if s.CommitFunc != nil {
		return s.CommitFunc(ctx, txID)
	}
	return nil
}

// RollbackTransaction implements client.Session.
func (s *Session) RollbackTransaction(ctx context.Context, txID string, _ client.OperationSettings) error {
	s.record(Call{Method: "RollbackTransaction", TxID: txID})
	if s.RollbackFunc != nil {
		return s.RollbackFunc(ctx, txID)
	}
	return nil
}

// Close implements client.Session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
}

