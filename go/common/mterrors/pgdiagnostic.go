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
	"google.golang.org/grpc/codes"
)

// PgDiagnostic holds the fields of a PostgreSQL ErrorResponse or
// NoticeResponse. Both share one wire layout; MessageType tells them apart.
type PgDiagnostic struct {
	// MessageType is 'E' for an error and 'N' for a notice.
	MessageType      byte
	Severity         string
	Code             string
	Message          string
	Detail           string
	Hint             string
	Position         int32
	InternalPosition int32
	InternalQuery    string
	Where            string
	Schema           string
	Table            string
	Column           string
	DataType         string
	Constraint       string
}

// IsNotice reports whether the server sent the diagnostic as a notice.
// Notices accompany a statement without failing it.
func (d *PgDiagnostic) IsNotice() bool {
	return d.MessageType == 'N'
}

// SQLSTATE returns the five character condition code, e.g. "42P01".
func (d *PgDiagnostic) SQLSTATE() string {
	return d.Code
}

// SQLSTATEClass returns the two character class of the condition code, or
// "" when the code is shorter than that.
func (d *PgDiagnostic) SQLSTATEClass() string {
	if len(d.Code) < 2 {
		return ""
	}
	return d.Code[:2]
}

// IsFatal reports whether the server ended the session (FATAL) or every
// session (PANIC) along with the diagnostic.
func (d *PgDiagnostic) IsFatal() bool {
	return d.Severity == "FATAL" || d.Severity == "PANIC"
}

// Issue converts the diagnostic into a status issue. An error is reported
// at SeverityError or above; a notice at SeverityWarning or below.
func (d *PgDiagnostic) Issue() Issue {
	sev := parseSeverity(d.Severity)
	switch {
	case d.IsFatal():
		sev = SeverityFatal
	case d.IsNotice():
		sev = max(sev, SeverityWarning)
	default:
		sev = min(sev, SeverityError)
	}
	msg := d.Message
	if d.Detail != "" {
		msg += " (" + d.Detail + ")"
	}
	return Issue{Code: d.Code, Severity: sev, Message: msg}
}

// Status returns the status carrying the diagnostic. A notice yields a
// successful status, an error the status its SQLSTATE maps to.
func (d *PgDiagnostic) Status() Status {
	if d.IsNotice() {
		return NewStatus(codes.OK, d.Issue())
	}
	return NewStatus(d.StatusCode(), d.Issue())
}

// StatusCode maps the SQLSTATE class onto a status code.
func (d *PgDiagnostic) StatusCode() codes.Code {
	switch d.SQLSTATEClass() {
	case "22", "42":
		return codes.InvalidArgument
	case "23", "25", "2D":
		return codes.FailedPrecondition
	case "40":
		return codes.Aborted
	case "53", "54":
		return codes.ResourceExhausted
	case "57":
		if d.Code == "57014" {
			return codes.Canceled
		}
		return codes.Unavailable
	case "08":
		return codes.Unavailable
	case "28":
		return codes.PermissionDenied
	case "0A":
		return codes.Unimplemented
	case "XX":
		return codes.Internal
	}
	return codes.Unknown
}

func parseSeverity(s string) Severity {
	switch s {
	case "PANIC", "FATAL":
		return SeverityFatal
	case "ERROR":
		return SeverityError
	case "WARNING":
		return SeverityWarning
	}
	return SeverityInfo
}
