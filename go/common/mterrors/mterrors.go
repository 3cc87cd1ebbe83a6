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

// Package mterrors defines the error taxonomy shared by the rdbc packages.
//
// Every error produced here carries a canonical gRPC code, retrievable with
// Code. Errors returned by the external database client that are not status
// errors are never wrapped: their shape is opaque to this module and they are
// propagated as-is.
package mterrors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// coder is implemented by every error in this package.
type coder interface {
	Code() codes.Code
}

type codedError struct {
	code codes.Code
	err  error
}

func (e *codedError) Error() string    { return e.err.Error() }
func (e *codedError) Unwrap() error    { return e.err }
func (e *codedError) Code() codes.Code { return e.code }

// New returns an error with the given code and message.
func New(code codes.Code, msg string) error {
	return &codedError{code: code, err: errors.New(msg)}
}

// Errorf returns an error with the given code. The format supports %w.
func Errorf(code codes.Code, format string, args ...any) error {
	return &codedError{code: code, err: fmt.Errorf(format, args...)}
}

// Code returns the code of the first coded error in err's chain.
// Context errors map to their natural codes; anything else is Unknown.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}

// ErrConnectionClosed is returned by every operation attempted on a closed
// connection.
var ErrConnectionClosed = New(codes.FailedPrecondition, "connection is closed")

// ValidationError is a local, synchronous failure: an unbound parameter or an
// unsupported call shape. It never involves a session.
type ValidationError struct {
	Msg string
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string    { return "validation error: " + e.Msg }
func (e *ValidationError) Code() codes.Code { return codes.InvalidArgument }

// UnexpectedResultError reports a non-success status returned by the database
// for the named operation.
type UnexpectedResultError struct {
	Op     string
	Status Status
}

func (e *UnexpectedResultError) Error() string {
	return fmt.Sprintf("%s: unexpected result: %s", e.Op, e.Status)
}

func (e *UnexpectedResultError) Code() codes.Code { return e.Status.Code }

// Unwrap exposes the status as a *StatusError so callers can match either type.
func (e *UnexpectedResultError) Unwrap() error { return &StatusError{Status: e.Status} }

// ProtocolIssueError is one issue reported while a query was streaming results.
type ProtocolIssueError struct {
	Issue Issue
}

func (e *ProtocolIssueError) Error() string    { return "query issue: " + e.Issue.Message }
func (e *ProtocolIssueError) Code() codes.Code { return codes.Aborted }

// FromClient converts an error returned by the database client for op.
// Status errors become *UnexpectedResultError; everything else is returned
// unchanged.
func FromClient(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return &UnexpectedResultError{Op: op, Status: se.Status}
	}
	return err
}
