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

package pgclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"google.golang.org/grpc/codes"

	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/tools/ctxutil"
)

// partRows is the number of rows carried by one streamed part.
const partRows = 1000

// emitFunc receives the rows of result set index in chunks of at most
// partRows. last is set on the closing chunk of a result set, which carries
// the command outcome and may hold no rows.
type emitFunc func(index int, res *sqltypes.Result, last bool) error

// chunker cuts the rows of one result set into chunks.
type chunker struct {
	index  int
	fields []sqltypes.Field
	chunk  *sqltypes.Result
	emit   emitFunc
}

func newChunker(index int, fields []sqltypes.Field, emit emitFunc) *chunker {
	return &chunker{index: index, fields: fields, chunk: &sqltypes.Result{Fields: fields}, emit: emit}
}

func (c *chunker) add(row *sqltypes.Row) error {
	c.chunk.Rows = append(c.chunk.Rows, row)
	if len(c.chunk.Rows) < partRows {
		return nil
	}
	full := c.chunk
	c.chunk = &sqltypes.Result{Fields: c.fields}
	return c.emit(c.index, full, false)
}

// finish emits the closing chunk with the outcome of the command.
func (c *chunker) finish(tag pgconn.CommandTag) error {
	c.chunk.RowsAffected = uint64(tag.RowsAffected())
	c.chunk.CommandTag = tag.String()
	return c.emit(c.index, c.chunk, true)
}

// run executes text on the session connection. Queries without parameters
// go through the simple protocol so that several statements can be sent at
// once.
func (s *Session) run(ctx context.Context, text string, params client.Params, emit emitFunc) error {
	if len(params) == 0 {
		return s.runSimple(ctx, text, emit)
	}
	return s.runExtended(ctx, text, params, emit)
}

func (s *Session) runSimple(ctx context.Context, text string, emit emitFunc) error {
	typeMap := s.conn.Conn().TypeMap()
	mrr := s.conn.Conn().PgConn().Exec(ctx, text)

	var emitErr, readErr error
	for index := 0; mrr.NextResult(); index++ {
		rr := mrr.ResultReader()
		c := newChunker(index, convertFields(rr.FieldDescriptions()), emit)
		for rr.NextRow() {
			row, err := decodeRow(typeMap, rr.FieldDescriptions(), rr.Values())
			if err != nil {
				emitErr = err
				break
			}
			if emitErr = c.add(row); emitErr != nil {
				break
			}
		}
		tag, err := rr.Close()
		if emitErr != nil {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		if emitErr = c.finish(tag); emitErr != nil {
			break
		}
	}
	closeErr := mrr.Close()
	switch {
	case emitErr != nil:
		return emitErr
	case closeErr != nil:
		return closeErr
	}
	return readErr
}

func (s *Session) runExtended(ctx context.Context, text string, params client.Params, emit emitFunc) error {
	rows, err := s.conn.Query(ctx, text, params.Values()...)
	if err != nil {
		return err
	}
	defer rows.Close()

	c := newChunker(0, convertFields(rows.FieldDescriptions()), emit)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}
		if err := c.add(sqltypes.MakeRow(values...)); err != nil {
			return err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	return c.finish(rows.CommandTag())
}

// resultSets merges the chunks of a run into one result set per statement.
type resultSets []*sqltypes.Result

func (r *resultSets) add(index int, res *sqltypes.Result, last bool) error {
	if index >= len(*r) {
		*r = append(*r, res)
		return nil
	}
	set := (*r)[index]
	set.Rows = append(set.Rows, res.Rows...)
	if last {
		set.RowsAffected = res.RowsAffected
		set.CommandTag = res.CommandTag
	}
	return nil
}

// partEmitter forwards chunks to a parts handler. A closing chunk without
// rows is dropped when earlier chunks of its result set were forwarded.
type partEmitter struct {
	handler client.PartsHandler
	sent    int
}

func newPartEmitter(handler client.PartsHandler) *partEmitter {
	return &partEmitter{handler: handler, sent: -1}
}

func (e *partEmitter) emit(ctx context.Context) emitFunc {
	return func(index int, res *sqltypes.Result, last bool) error {
		if last && len(res.Rows) == 0 && index == e.sent {
			return ctx.Err()
		}
		e.sent = index
		e.handler.OnNextPart(ctx, client.Part{Index: index, Result: res})
		return ctx.Err()
	}
}

func convertFields(fds []pgconn.FieldDescription) []sqltypes.Field {
	if len(fds) == 0 {
		return nil
	}
	fields := make([]sqltypes.Field, len(fds))
	for i, fd := range fds {
		fields[i] = sqltypes.Field{Name: fd.Name, DataTypeOID: fd.DataTypeOID}
	}
	return fields
}

// decodeRow decodes one raw row. Values of types unknown to typeMap are
// returned as strings.
func decodeRow(typeMap *pgtype.Map, fds []pgconn.FieldDescription, raw [][]byte) (*sqltypes.Row, error) {
	row := &sqltypes.Row{Values: make([]any, len(raw))}
	for i, b := range raw {
		if b == nil {
			continue
		}
		fd := fds[i]
		dt, ok := typeMap.TypeForOID(fd.DataTypeOID)
		if !ok {
			row.Values[i] = string(b)
			continue
		}
		v, err := dt.Codec.DecodeValue(typeMap, fd.DataTypeOID, fd.Format, b)
		if err != nil {
			return nil, fmt.Errorf("decode column %s: %w", fd.Name, err)
		}
		row.Values[i] = v
	}
	return row, nil
}

// queryStream is a query bound to a session, run once per Execute.
type queryStream struct {
	session *Session
	text    string
	mode    client.TxMode
	params  client.Params
}

// CreateQuery implements client.QuerySession.
func (s *Session) CreateQuery(text string, mode client.TxMode, params client.Params) (client.QueryStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, statusErr(codes.FailedPrecondition, "session %s is closed", s.id)
	}
	return &queryStream{session: s, text: text, mode: mode, params: params}, nil
}

// Execute implements client.QueryStream. Every chunk becomes one part. A
// server error is reported to handler as an issue before it is returned.
func (q *queryStream) Execute(ctx context.Context, handler client.PartsHandler) error {
	s := q.session
	s.mu.Lock()
	defer s.mu.Unlock()

	emit := newPartEmitter(handler).emit(ctx)

	var err error
	if q.mode == client.TxModeNone {
		err = s.run(ctx, q.text, q.params, emit)
	} else {
		err = q.inTx(ctx, emit)
	}
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		diag := diagnosticFromPgError(pgErr)
		handler.OnIssues(ctx, diag.Status().Issues)
		return diag.Status().Err()
	}
	return err
}

func (q *queryStream) inTx(ctx context.Context, emit emitFunc) error {
	s := q.session
	tx, err := s.conn.BeginTx(ctx, txOptions(q.mode))
	if err != nil {
		return err
	}
	if err := s.run(ctx, q.text, q.params, emit); err != nil {
		rbCtx, cancel := ctxutil.Cleanup(ctx, releaseTimeout)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil {
			s.logger.WarnContext(ctx, "rollback of query transaction failed", "session_id", s.id, "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
