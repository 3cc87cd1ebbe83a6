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
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
)

// Severity of a server issue.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "FATAL"
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Issue is a single diagnostic reported by the database server.
type Issue struct {
	// Code is the server specific code (a SQLSTATE for PostgreSQL).
	Code     string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	if i.Code == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", i.Severity, i.Code, i.Message)
}

// Status is the outcome of one call to the database server.
type Status struct {
	Code   codes.Code
	Issues []Issue
}

// StatusSuccess is the status of a successful call.
var StatusSuccess = Status{Code: codes.OK}

// NewStatus builds a Status.
func NewStatus(code codes.Code, issues ...Issue) Status {
	return Status{Code: code, Issues: issues}
}

// IsSuccess reports whether the status is OK.
func (s Status) IsSuccess() bool {
	return s.Code == codes.OK
}

// Err returns nil for a successful status and a *StatusError otherwise.
func (s Status) Err() error {
	if s.IsSuccess() {
		return nil
	}
	return &StatusError{Status: s}
}

func (s Status) String() string {
	if len(s.Issues) == 0 {
		return "Status{code = " + s.Code.String() + "}"
	}
	parts := make([]string, len(s.Issues))
	for i, issue := range s.Issues {
		parts[i] = issue.String()
	}
	return "Status{code = " + s.Code.String() + ", issues = [" + strings.Join(parts, "; ") + "]}"
}

// StatusError is how a database client reports a non-success status.
// Clients must return it (possibly wrapped) instead of ad-hoc errors so that
// server statuses and transport failures can be told apart.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string    { return e.Status.String() }
func (e *StatusError) Code() codes.Code { return e.Status.Code }
