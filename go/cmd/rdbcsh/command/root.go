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
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/multigres/rdbc/go/rdbc/config"
	"github.com/multigres/rdbc/go/tools/telemetry"
)

// shell holds the state shared by rdbcsh subcommands.
type shell struct {
	cfg       config.Config
	logger    *slog.Logger
	telemetry *telemetry.Telemetry

	// openPool replaces the PostgreSQL client when set.
	openPool func(ctx context.Context) (pools, func(), error)
}

// GetRootCommand creates and returns the root command with all subcommands.
func GetRootCommand() *cobra.Command {
	sh := &shell{telemetry: telemetry.NewTelemetry()}

	root := &cobra.Command{
		Use:   "rdbcsh",
		Short: "Run SQL statements through an rdbc connection",
		Long: `rdbcsh drives the rdbc connection state machine against a PostgreSQL database.

Configuration is read from flags, RDBC_ environment variables and a config
file, in that order. Without --config-file, a file named 'rdbc' with a
supported extension is searched in the working directory and in $HOME/.rdbc.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag errors happen before this point and still print usage.
			cmd.SilenceUsage = true

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			sh.cfg = cfg
			sh.logger = cfg.Logger(cmd.ErrOrStderr())
			slog.SetDefault(sh.logger)

			if err := sh.telemetry.InitTelemetry(cmd.Context(), "rdbcsh"); err != nil {
				return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sh.telemetry.ShutdownTelemetry(ctx); err != nil {
				return fmt.Errorf("failed to shutdown OpenTelemetry: %w", err)
			}
			return nil
		},
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newExecCommand(sh))
	root.AddCommand(newConfigCommand(sh))
	return root
}

func newConfigCommand(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.cfg.WriteYAML(cmd.OutOrStdout())
		},
	}
}
