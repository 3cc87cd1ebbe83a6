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
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/spf13/cobra"

	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/conn"
	"github.com/multigres/rdbc/go/rdbc/pgclient"
	"github.com/multigres/rdbc/go/rdbc/query"
	"github.com/multigres/rdbc/go/rdbc/result"
	"github.com/multigres/rdbc/go/rdbc/stream"
	"github.com/multigres/rdbc/go/tools/ctxutil"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

const (
	// nullParam is the --param value bound as NULL.
	nullParam = `\N`

	cleanupTimeout = 5 * time.Second
)

type execOptions struct {
	ddl    bool
	tx     bool
	params []string
	format string
}

func newExecCommand(sh *shell) *cobra.Command {
	opts := &execOptions{}
	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute one SQL text and print its results",
		Long: `Execute one SQL text and print its results.

Parameters are bound in order to the placeholders of the text (?, $name or
$N). A parameter value of \N binds NULL. With --tx the text runs inside an
explicit transaction that is committed on success and rolled back on error.`,
		Example: `  rdbcsh exec "SELECT * FROM users WHERE id = ?" --param 42
  rdbcsh exec --ddl "CREATE TABLE users (id int PRIMARY KEY)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.exec(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.ddl, "ddl", false, "Run the text as a scheme query.")
	cmd.Flags().BoolVar(&opts.tx, "tx", false, "Run the text inside an explicit transaction.")
	cmd.Flags().StringArrayVar(&opts.params, "param", nil, "Parameter value, bound in order. May be repeated.")
	cmd.Flags().StringVar(&opts.format, "format", "table", "Output format (table, yaml).")
	return cmd
}

// pools is what a connection borrows sessions from.
type pools interface {
	client.SessionPool
	client.QuerySessionPool
}

// openPostgres connects to the configured database.
func (sh *shell) openPostgres(ctx context.Context) (pools, func(), error) {
	pool, err := pgclient.New(ctx, sh.cfg.DSN,
		pgclient.WithMaxConns(sh.cfg.MaxConns),
		pgclient.WithLogger(sh.logger))
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

func (sh *shell) metrics() (telemetry.Metrics, error) {
	mp := sh.telemetry.GetMeterProvider()
	if mp == nil {
		return telemetry.DefaultMetrics(), nil
	}
	m, err := telemetry.NewMetrics(mp.Meter("rdbcsh"))
	if err != nil {
		return telemetry.Metrics{}, fmt.Errorf("failed to create metrics: %w", err)
	}
	return m, nil
}

func (sh *shell) exec(ctx context.Context, w io.Writer, text string, opts *execOptions) (err error) {
	printer, err := newPrinter(w, opts.format)
	if err != nil {
		return err
	}
	if sh.cfg.DSN == "" {
		return errors.New("no database configured: set --dsn or RDBC_DSN")
	}
	txSettings, err := sh.cfg.TxSettings()
	if err != nil {
		return err
	}
	metrics, err := sh.metrics()
	if err != nil {
		return err
	}

	open := sh.openPool
	if open == nil {
		open = sh.openPostgres
	}
	pool, closePool, err := open(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	env := conn.NewEnv(pool, pool,
		conn.WithOperationsConfig(sh.cfg.Operations),
		conn.WithTxSettings(txSettings),
		conn.WithLogger(sh.logger),
		conn.WithMetrics(metrics))
	cn := conn.Open(env)
	defer func() {
		closeCtx, cancel := ctxutil.Cleanup(ctx, cleanupTimeout)
		defer cancel()
		if closeErr := cn.Close(closeCtx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if !opts.tx {
		return sh.run(ctx, cn, text, opts, printer)
	}

	if err := cn.BeginTransaction(ctx); err != nil {
		return err
	}
	if err := sh.run(ctx, cn, text, opts, printer); err != nil {
		rbCtx, cancel := ctxutil.Cleanup(ctx, cleanupTimeout)
		defer cancel()
		if rbErr := cn.RollbackTransaction(rbCtx); rbErr != nil {
			sh.logger.WarnContext(ctx, "rollback failed", "error", rbErr)
		}
		return err
	}
	return cn.CommitTransaction(ctx)
}

// binder is implemented by bindings and statements.
type binder interface {
	Bind(index int, v any) error
	BindNull(index int, t reflect.Type) error
}

func bindParams(b binder, params []string) error {
	for i, v := range params {
		var err error
		if v == nullParam {
			err = b.BindNull(i, reflect.TypeFor[string]())
		} else {
			err = b.Bind(i, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// results starts the execution of text. Inside a transaction the text runs
// as a data query on the session holding the transaction; otherwise it runs
// as a statement on its own query session.
func (sh *shell) results(ctx context.Context, cn *conn.Connection, text string, opts *execOptions) (*stream.Stream[*result.Result], error) {
	if opts.ddl {
		if len(opts.params) > 0 {
			return nil, errors.New("--param cannot be used with --ddl")
		}
		return cn.ExecuteSchemeQuery(ctx, text), nil
	}

	if _, inside := cn.CurrentState().(conn.Inside); inside {
		q, err := query.Parse(text)
		if err != nil {
			return nil, err
		}
		b := q.NewBinding()
		if err := bindParams(b, opts.params); err != nil {
			return nil, err
		}
		compiled, params, err := q.Compile(b)
		if err != nil {
			return nil, err
		}
		return cn.ExecuteDataQuery(ctx, compiled, params, q.OperationTypes()), nil
	}

	stmt, err := cn.CreateStatement(text)
	if err != nil {
		return nil, err
	}
	if err := bindParams(stmt, opts.params); err != nil {
		return nil, err
	}
	return stmt.Execute(ctx), nil
}

func (sh *shell) run(ctx context.Context, cn *conn.Connection, text string, opts *execOptions, p printer) error {
	results, err := sh.results(ctx, cn, text, opts)
	if err != nil {
		return err
	}
	for r, err := range results.All(ctx) {
		if err != nil {
			return err
		}
		if err := p.print(ctx, r); err != nil {
			return err
		}
	}
	return p.flush()
}
