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

package mterrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"coded", New(codes.NotFound, "missing"), codes.NotFound},
		{"wrapped coded", fmt.Errorf("outer: %w", New(codes.Aborted, "inner")), codes.Aborted},
		{"validation", NewValidationError("bad %d", 1), codes.InvalidArgument},
		{"closed", ErrConnectionClosed, codes.FailedPrecondition},
		{"issue", &ProtocolIssueError{Issue: Issue{Message: "x"}}, codes.Aborted},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", fmt.Errorf("op: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"grpc status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{"plain", errors.New("boom"), codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestErrorfWraps(t *testing.T) {
	base := errors.New("base")
	err := Errorf(codes.Internal, "ctx: %w", base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "ctx: base", err.Error())
	assert.Equal(t, codes.Internal, Code(err))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("parameter %q is not bound", "$id")
	assert.Equal(t, `validation error: parameter "$id" is not bound`, err.Error())

	var ve *ValidationError
	require.ErrorAs(t, fmt.Errorf("execute: %w", err), &ve)
	assert.Equal(t, `parameter "$id" is not bound`, ve.Msg)
}

func TestFromClient(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, FromClient("commit", nil))
	})

	t.Run("status is wrapped", func(t *testing.T) {
		st := NewStatus(codes.Aborted, Issue{Severity: SeverityError, Message: "tx locks invalidated"})
		err := FromClient("commit", st.Err())

		var ure *UnexpectedResultError
		require.ErrorAs(t, err, &ure)
		assert.Equal(t, "commit", ure.Op)
		assert.Equal(t, st, ure.Status)
		assert.Equal(t, codes.Aborted, Code(err))
		assert.Contains(t, err.Error(), "commit: unexpected result: Status{code = Aborted")

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, st, se.Status)
	})

	t.Run("transport error passes through", func(t *testing.T) {
		transport := errors.New("connection reset")
		assert.Same(t, transport, FromClient("commit", transport))
	})
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusSuccess.IsSuccess())
	assert.NoError(t, StatusSuccess.Err())
	assert.Equal(t, "Status{code = OK}", StatusSuccess.String())

	st := NewStatus(codes.NotFound,
		Issue{Code: "42P01", Severity: SeverityError, Message: "no table"},
		Issue{Severity: SeverityWarning, Message: "slow"},
	)
	assert.False(t, st.IsSuccess())
	assert.Equal(t, "Status{code = NotFound, issues = [ERROR 42P01: no table; WARNING: slow]}", st.String())
	assert.Equal(t, codes.NotFound, Code(st.Err()))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "FATAL", SeverityFatal.String())
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "Severity(9)", Severity(9).String())
}
