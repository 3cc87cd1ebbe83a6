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
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestPgDiagnosticClass(t *testing.T) {
	d := &PgDiagnostic{MessageType: 'E', Severity: "ERROR", Code: "42P01", Message: "relation does not exist"}
	assert.False(t, d.IsNotice())
	assert.Equal(t, "42P01", d.SQLSTATE())
	assert.Equal(t, "42", d.SQLSTATEClass())
	assert.False(t, d.IsFatal())
	assert.True(t, (&PgDiagnostic{Severity: "PANIC"}).IsFatal())

	assert.Equal(t, "", (&PgDiagnostic{Code: "4"}).SQLSTATEClass())
}

func TestPgDiagnosticIssueSeverity(t *testing.T) {
	tests := []struct {
		name        string
		messageType byte
		severity    string
		want        Severity
	}{
		{"error", 'E', "ERROR", SeverityError},
		{"fatal error", 'E', "FATAL", SeverityFatal},
		{"panic", 'E', "PANIC", SeverityFatal},
		{"error with notice severity", 'E', "NOTICE", SeverityError},
		{"warning notice", 'N', "WARNING", SeverityWarning},
		{"plain notice", 'N', "NOTICE", SeverityInfo},
		{"debug notice", 'N', "DEBUG", SeverityInfo},
		{"notice claiming error", 'N', "ERROR", SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &PgDiagnostic{MessageType: tt.messageType, Severity: tt.severity, Code: "01000", Message: "m"}
			assert.Equal(t, tt.want, d.Issue().Severity)
		})
	}
}

func TestPgDiagnosticNoticeStatus(t *testing.T) {
	d := &PgDiagnostic{MessageType: 'N', Severity: "WARNING", Code: "01000", Message: "table is unlogged"}
	st := d.Status()
	assert.True(t, st.IsSuccess())
	assert.NoError(t, st.Err())
	assert.Equal(t, []Issue{{Code: "01000", Severity: SeverityWarning, Message: "table is unlogged"}}, st.Issues)
}

func TestPgDiagnosticStatus(t *testing.T) {
	tests := []struct {
		code string
		want codes.Code
	}{
		{"42601", codes.InvalidArgument},
		{"23505", codes.FailedPrecondition},
		{"40001", codes.Aborted},
		{"57014", codes.Canceled},
		{"57P01", codes.Unavailable},
		{"08006", codes.Unavailable},
		{"XX000", codes.Internal},
		{"P0001", codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			d := &PgDiagnostic{MessageType: 'E', Severity: "ERROR", Code: tt.code, Message: "m"}
			assert.Equal(t, tt.want, d.StatusCode())
		})
	}

	d := &PgDiagnostic{MessageType: 'E', Severity: "FATAL", Code: "23505", Message: "duplicate key", Detail: "Key (id)=(1) already exists."}
	st := d.Status()
	assert.Equal(t, codes.FailedPrecondition, st.Code)
	assert.Equal(t, []Issue{{
		Code:     "23505",
		Severity: SeverityFatal,
		Message:  "duplicate key (Key (id)=(1) already exists.)",
	}}, st.Issues)
}
