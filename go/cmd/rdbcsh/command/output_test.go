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

package command

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/multigres/rdbc/go/common/sqltypes"
	"github.com/multigres/rdbc/go/rdbc/result"
)

func usersResult() *result.Result {
	return result.FromResultSet(&sqltypes.Result{
		Fields: []sqltypes.Field{{Name: "id"}, {Name: "name"}},
		Rows: []*sqltypes.Row{
			sqltypes.MakeRow(int32(1), "alice"),
			sqltypes.MakeRow(int32(2), nil),
		},
	}, true)
}

func TestNewPrinterRejectsUnknownFormat(t *testing.T) {
	_, err := newPrinter(&bytes.Buffer{}, "csv")
	assert.ErrorContains(t, err, `unknown output format "csv"`)
}

func TestTablePrinter(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	p, err := newPrinter(&buf, "table")
	require.NoError(t, err)

	require.NoError(t, p.print(ctx, usersResult()))
	require.NoError(t, p.print(ctx, result.NewUpdateCount(3)))
	require.NoError(t, p.print(ctx, result.NewScheme()))
	require.NoError(t, p.flush())

	out := buf.String()
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 row(s))")
	assert.Contains(t, out, "OK, 3 row(s) affected")
	assert.Contains(t, out, "OK\n")
}

func TestYAMLPrinter(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	p, err := newPrinter(&buf, "yaml")
	require.NoError(t, err)

	require.NoError(t, p.print(ctx, usersResult()))
	require.NoError(t, p.print(ctx, result.NewUpdateCount(1)))
	require.NoError(t, p.flush())

	var decoded []yamlResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "rows", decoded[0].Kind)
	assert.Equal(t, int64(-1), decoded[0].RowsUpdated)
	assert.Equal(t, []map[string]any{
		{"id": "1", "name": "alice"},
		{"id": "2", "name": nil},
	}, decoded[0].Rows)

	assert.Equal(t, yamlResult{Kind: "update_count", RowsUpdated: 1}, decoded[1])
}

func TestConfigCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RDBC_DSN", "postgres://localhost/app")

	root := GetRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "--tx-mode", "snapshot_ro"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "dsn: postgres://localhost/app")
	assert.Contains(t, out.String(), "tx-mode: snapshot_ro")
}

func TestExecRequiresDSN(t *testing.T) {
	t.Chdir(t.TempDir())

	root := GetRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"exec", "SELECT 1"})
	err := root.Execute()
	assert.ErrorContains(t, err, "no database configured")
}

func TestExecRejectsBadFormat(t *testing.T) {
	t.Chdir(t.TempDir())

	root := GetRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"exec", "--format", "xml", "SELECT 1"})
	err := root.Execute()
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}
