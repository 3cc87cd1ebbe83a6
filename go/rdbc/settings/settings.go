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

// Package settings holds the immutable transaction and operation settings a
// connection carries between operations.
package settings

import (
	"fmt"
	"time"

	"github.com/multigres/rdbc/go/rdbc/client"
)

// TxSettings describes the transaction mode and the auto-commit flag of a
// connection. It is a comparable value; the With* methods return copies.
type TxSettings struct {
	mode       client.TxMode
	autoCommit bool
}

// New returns settings for mode with the given auto-commit flag.
func New(mode client.TxMode, autoCommit bool) TxSettings {
	return TxSettings{mode: mode, autoCommit: autoCommit}
}

// Default returns serializable read-write settings with auto-commit enabled.
func Default() TxSettings {
	return New(client.TxModeSerializableRW, true)
}

func (s TxSettings) Mode() client.TxMode { return s.mode }

func (s TxSettings) AutoCommit() bool { return s.autoCommit }

// WithAutoCommit returns a copy of s with the auto-commit flag set to v.
func (s TxSettings) WithAutoCommit(v bool) TxSettings {
	s.autoCommit = v
	return s
}

// WithMode returns a copy of s using mode.
func (s TxSettings) WithMode(mode client.TxMode) TxSettings {
	s.mode = mode
	return s
}

// TxControl derives the descriptor for a statement issued outside of a
// transaction. The statement begins a transaction in the settings' mode and
// commits it with the statement when auto-commit is on. TxModeNone never
// begins a transaction.
func (s TxSettings) TxControl() client.TxControl {
	if s.mode == client.TxModeNone {
		return client.TxControl{Begin: client.TxModeNone, CommitTx: true}
	}
	return client.TxControl{Begin: s.mode, CommitTx: s.autoCommit}
}

// TxControlFor derives the descriptor for a statement that continues the
// open transaction txID. The transaction is never committed by the statement.
func (s TxSettings) TxControlFor(txID string) client.TxControl {
	return client.TxControl{TxID: txID}
}

func (s TxSettings) String() string {
	return fmt.Sprintf("TxSettings{mode = %s, auto_commit = %t}", s.mode, s.autoCommit)
}

// OperationsConfig bounds every call made to the database client.
type OperationsConfig struct {
	// OperationTimeout is the server side deadline of an operation.
	OperationTimeout time.Duration `mapstructure:"operation-timeout" yaml:"operation-timeout"`
	// CancelAfter asks the server to cancel an operation after this long.
	CancelAfter time.Duration `mapstructure:"cancel-after" yaml:"cancel-after"`
	// ClientTimeout is the client side deadline of an operation.
	ClientTimeout time.Duration `mapstructure:"client-timeout" yaml:"client-timeout"`
}

// DefaultOperationsConfig returns the operation limits used when none are
// configured.
func DefaultOperationsConfig() OperationsConfig {
	return OperationsConfig{
		OperationTimeout: 60 * time.Second,
		CancelAfter:      60 * time.Second,
		ClientTimeout:    65 * time.Second,
	}
}

// Operation converts the config into the settings passed with each client
// call.
func (c OperationsConfig) Operation() client.OperationSettings {
	return client.OperationSettings{
		OperationTimeout: c.OperationTimeout,
		CancelAfter:      c.CancelAfter,
		ClientTimeout:    c.ClientTimeout,
	}
}
