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

package statement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/result"
	"github.com/multigres/rdbc/go/rdbc/stream"
)

// Observer sees every part of a query before it is converted and emitted.
// A returned error aborts the stream.
type Observer interface {
	OnNext(ctx context.Context, part client.Part) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, part client.Part) error

func (f ObserverFunc) OnNext(ctx context.Context, part client.Part) error {
	return f(ctx, part)
}

// LoggingObserver logs every part at debug level.
type LoggingObserver struct {
	Logger *slog.Logger
}

func (o LoggingObserver) OnNext(ctx context.Context, part client.Part) error {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"part_index", part.Index}
	if part.Result != nil {
		attrs = append(attrs,
			"columns", len(part.Result.Fields),
			"rows", len(part.Result.Rows),
			"command_tag", part.Result.CommandTag)
	}
	logger.DebugContext(ctx, "received query result part", attrs...)
	return nil
}

// PartCollector feeds the parts of one query execution into a stream of
// results. It implements client.PartsHandler.
//
// Parts go to every observer in order and then, converted, to the sink.
// An observer failure, a conversion failure or a reported issue fails the
// collection: later parts are dropped and Err returns the first failure.
// The collector never terminates the sink itself. Its owner does, with Err
// or completion, once the execution finished and its session was released.
type PartCollector struct {
	observers []Observer
	sink      *stream.Sink[*result.Result]
	logger    *slog.Logger
	err       error
}

var _ client.PartsHandler = (*PartCollector)(nil)

// NewPartCollector returns a collector writing to sink.
func NewPartCollector(observers []Observer, sink *stream.Sink[*result.Result], logger *slog.Logger) *PartCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PartCollector{observers: observers, sink: sink, logger: logger}
}

// OnNextPart implements client.PartsHandler.
func (c *PartCollector) OnNextPart(ctx context.Context, part client.Part) {
	if c.err != nil {
		c.logger.DebugContext(ctx, "dropping query part after stream failure", "part_index", part.Index)
		return
	}
	for _, o := range c.observers {
		if err := o.OnNext(ctx, part); err != nil {
			c.fail(ctx, fmt.Errorf("result observer: %w", err))
			return
		}
	}
	res, err := result.FromPart(part)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	if !c.sink.Next(ctx, res) {
		c.logger.DebugContext(ctx, "query result not delivered, stream stopped", "part_index", part.Index)
	}
}

// OnIssues implements client.PartsHandler. Each issue becomes one
// ProtocolIssueError; only the first one is kept.
func (c *PartCollector) OnIssues(ctx context.Context, issues []mterrors.Issue) {
	for _, issue := range issues {
		c.fail(ctx, &mterrors.ProtocolIssueError{Issue: issue})
	}
}

// Err returns the first failure, or nil.
func (c *PartCollector) Err() error {
	return c.err
}

func (c *PartCollector) fail(ctx context.Context, err error) {
	if c.err != nil {
		c.logger.DebugContext(ctx, "dropping error after query failure", "error", err)
		return
	}
	c.err = err
}
