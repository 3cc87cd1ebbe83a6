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

package conn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/client/fakeclient"
	"github.com/multigres/rdbc/go/rdbc/statement"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

func TestClosedRejectsEveryOperation(t *testing.T) {
	fake := fakeclient.New()
	c := New(newTestEnv(fake), ClosedState)
	ctx := t.Context()

	_, err := c.ExecuteSchemeQuery(ctx, "CREATE TABLE t (id int)").Collect(ctx)
	assert.ErrorIs(t, err, mterrors.ErrConnectionClosed)
	_, err = c.ExecuteDataQuery(ctx, "SELECT 1", nil, selectOps()).Collect(ctx)
	assert.ErrorIs(t, err, mterrors.ErrConnectionClosed)
	assert.ErrorIs(t, c.BeginTransaction(ctx), mterrors.ErrConnectionClosed)
	assert.ErrorIs(t, c.CommitTransaction(ctx), mterrors.ErrConnectionClosed)
	assert.ErrorIs(t, c.RollbackTransaction(ctx), mterrors.ErrConnectionClosed)
	assert.ErrorIs(t, c.SetAutoCommit(ctx, false), mterrors.ErrConnectionClosed)
	_, err = c.CreateStatement("SELECT 1")
	assert.ErrorIs(t, err, mterrors.ErrConnectionClosed)
	assert.NoError(t, c.Close(ctx))

	assert.False(t, c.IsAutoCommit())
	assert.Equal(t, ClosedState, c.CurrentState())
	assert.Equal(t, 0, fake.Acquired())
}

func TestCreateStatement(t *testing.T) {
	fake := fakeclient.New()
	c := Open(newTestEnv(fake))

	ddl, err := c.CreateStatement("CREATE TABLE t (id int); DROP TABLE u")
	require.NoError(t, err)
	assert.IsType(t, &statement.DDL{}, ddl)
	assert.ErrorIs(t, ddl.Bind(0, 1), statement.ErrDDLBinding)

	dml, err := c.CreateStatement("INSERT INTO t VALUES ($id)")
	require.NoError(t, err)
	assert.IsType(t, &statement.DML{}, dml)
	require.NoError(t, dml.BindName("id", 1))

	results, err := dml.Execute(t.Context()).Collect(t.Context())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, fake.Acquired())
	assert.Equal(t, 0, fake.Outstanding())

	_, err = c.CreateStatement("SELECT 'unterminated")
	var ve *mterrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCreateStatementWithoutQueryPool(t *testing.T) {
	c := Open(NewEnv(fakeclient.New(), nil))
	_, err := c.CreateStatement("SELECT 1")
	var ve *mterrors.ValidationError
	require.ErrorAs(t, err, &ve)
}

// TestSessionReleaseInvariant runs a sequence mixing success, failure and
// cancellation and checks that every session acquired was either released
// once or is the one held by the final Inside state.
func TestSessionReleaseInvariant(t *testing.T) {
	fake := fakeclient.New()
	env := newTestEnv(fake)
	c := Open(env)
	ctx := t.Context()

	failing := fakeclient.NewSession("failing")
	failing.SchemeQueryFunc = func(_ context.Context, _ string) error { return mterrors.NewStatus(codes.Internal).Err() }
	opening := fakeclient.NewSession("opening")
	opening.DataQueryFunc = func(context.Context, string, client.TxControl, client.Params) (*client.DataQueryResult, error) {
		return &client.DataQueryResult{TxID: "tx9"}, nil
	}
	fake.AddSession(fakeclient.NewSession("ok"), failing, fakeclient.NewSession("cancelled"), fakeclient.NewSession("explicit"), opening)

	_, err := c.ExecuteSchemeQuery(ctx, "CREATE TABLE a (id int)").Collect(ctx)
	require.NoError(t, err)
	_, err = c.ExecuteSchemeQuery(ctx, "CREATE TABLE a (id int)").Collect(ctx)
	require.Error(t, err)
	s := c.ExecuteDataQuery(ctx, "SELECT 1", nil, selectOps())
	s.Cancel()
	<-s.Done()
	require.NoError(t, c.BeginTransaction(ctx))
	require.NoError(t, c.RollbackTransaction(ctx))
	require.NoError(t, c.SetAutoCommit(ctx, false))
	_, err = c.ExecuteDataQuery(ctx, "UPDATE a SET id = 1", nil, nil).Collect(ctx)
	require.NoError(t, err)

	held := 0
	if _, ok := c.CurrentState().(Inside); ok {
		held = 1
	}
	assert.Equal(t, 1, held)
	assert.Equal(t, 5, fake.Acquired())
	assert.Equal(t, held, fake.Outstanding())
	assert.Equal(t, 0, opening.CloseCount())

	require.NoError(t, c.Close(ctx))
	assert.Equal(t, 0, fake.Outstanding())
	assert.Equal(t, 1, opening.CloseCount())
}

func TestConnectionTelemetry(t *testing.T) {
	setup := telemetry.SetupTestTelemetry(t)
	fake := fakeclient.New()
	c := Open(newTestEnv(fake, WithMetrics(setup.Metrics(t))))
	ctx := t.Context()

	_, err := c.ExecuteDataQuery(ctx, "SELECT 1", nil, selectOps()).Collect(ctx)
	require.NoError(t, err)
	require.NoError(t, c.BeginTransaction(ctx))
	require.NoError(t, c.CommitTransaction(ctx))

	pool := attribute.String("rdbc.pool", "session")
	assert.Equal(t, int64(2), setup.CounterValue(t, "rdbc.session.acquired", pool))
	assert.Equal(t, int64(2), setup.CounterValue(t, "rdbc.session.released", pool))
	assert.Equal(t, int64(1), setup.CounterValue(t, "rdbc.session.released", pool, attribute.String("rdbc.release.reason", "commit")))
	assert.Equal(t, int64(1), setup.CounterValue(t, "rdbc.query.count", attribute.String("rdbc.query.kind", "data")))

	var names []string
	for _, span := range setup.SpanExporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Equal(t, []string{"rdbc.conn.execute_data_query", "rdbc.conn.begin", "rdbc.conn.commit"}, names)
}
