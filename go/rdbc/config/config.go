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

// Package config loads rdbc settings from flags, RDBC_ environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/multigres/rdbc/go/rdbc/client"
	"github.com/multigres/rdbc/go/rdbc/settings"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RDBC"

// Config is the effective rdbc configuration.
type Config struct {
	DSN        string                    `mapstructure:"dsn" yaml:"dsn"`
	MaxConns   int32                     `mapstructure:"max-conns" yaml:"max-conns"`
	TxMode     string                    `mapstructure:"tx-mode" yaml:"tx-mode"`
	AutoCommit bool                      `mapstructure:"auto-commit" yaml:"auto-commit"`
	LogLevel   string                    `mapstructure:"log-level" yaml:"log-level"`
	LogFormat  string                    `mapstructure:"log-format" yaml:"log-format"`
	Operations settings.OperationsConfig `mapstructure:"operations" yaml:"operations"`
}

// NotFoundHandling controls what Load does when no config file is found.
type NotFoundHandling string

const (
	IgnoreConfigFileNotFound NotFoundHandling = "ignore"
	WarnOnConfigFileNotFound NotFoundHandling = "warn"
	ErrorOnConfigFileNotFound NotFoundHandling = "error"
)

// flag name -> viper key
var flagKeys = map[string]string{
	"dsn":               "dsn",
	"max-conns":         "max-conns",
	"tx-mode":           "tx-mode",
	"auto-commit":       "auto-commit",
	"log-level":         "log-level",
	"log-format":        "log-format",
	"operation-timeout": "operations.operation-timeout",
	"cancel-after":      "operations.cancel-after",
	"client-timeout":    "operations.client-timeout",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	tx := settings.Default()
	return Config{
		MaxConns:   4,
		TxMode:     tx.Mode().String(),
		AutoCommit: tx.AutoCommit(),
		LogLevel:   "info",
		LogFormat:  "text",
		Operations: settings.DefaultOperationsConfig(),
	}
}

// RegisterFlags installs the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config-file", "", "Full path of the config file (with extension) to use.")
	fs.String("config-file-not-found-handling", string(IgnoreConfigFileNotFound),
		"Behavior when the default config file is not found. (Options: ignore, warn, error)")
	fs.String("dsn", d.DSN, "Database connection string.")
	fs.Int32("max-conns", d.MaxConns, "Maximum number of pooled connections.")
	fs.String("tx-mode", d.TxMode, "Transaction mode (serializable_rw, snapshot_ro, stale_ro, online_ro, online_inconsistent_ro, none).")
	fs.Bool("auto-commit", d.AutoCommit, "Commit every statement run outside an explicit transaction.")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error).")
	fs.String("log-format", d.LogFormat, "Log format (json, text).")
	fs.Duration("operation-timeout", d.Operations.OperationTimeout, "Server side deadline of each operation.")
	fs.Duration("cancel-after", d.Operations.CancelAfter, "Cancel each operation on the server after this long.")
	fs.Duration("client-timeout", d.Operations.ClientTimeout, "Client side deadline of each operation.")
}

// Load resolves the configuration for the flags in fs, which must have been
// registered with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("dsn", d.DSN)
	v.SetDefault("max-conns", d.MaxConns)
	v.SetDefault("tx-mode", d.TxMode)
	v.SetDefault("auto-commit", d.AutoCommit)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("operations.operation-timeout", d.Operations.OperationTimeout)
	v.SetDefault("operations.cancel-after", d.Operations.CancelAfter)
	v.SetDefault("operations.client-timeout", d.Operations.ClientTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	handling := IgnoreConfigFileNotFound
	if f := fs.Lookup("config-file-not-found-handling"); f != nil {
		handling = NotFoundHandling(f.Value.String())
	}

	var file string
	if f := fs.Lookup("config-file"); f != nil {
		file = f.Value.String()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("rdbc")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.rdbc")
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &notFound):
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch handling {
	case IgnoreConfigFileNotFound:
		return nil
	case WarnOnConfigFileNotFound:
		slog.Warn("config file not found, using flags and environment only", "error", err)
		return nil
	case ErrorOnConfigFileNotFound:
		return fmt.Errorf("config file not found: %w", err)
	}
	return fmt.Errorf("unknown config-file-not-found-handling %q", handling)
}

func decode(input map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Validate checks that every value can be used.
func (c Config) Validate() error {
	if _, err := client.ParseTxMode(c.TxMode); err != nil {
		return fmt.Errorf("invalid tx-mode: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log-format %q", c.LogFormat)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("invalid max-conns %d", c.MaxConns)
	}
	for name, d := range map[string]time.Duration{
		"operation-timeout": c.Operations.OperationTimeout,
		"cancel-after":      c.Operations.CancelAfter,
		"client-timeout":    c.Operations.ClientTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("invalid %s %s", name, d)
		}
	}
	return nil
}

// TxSettings returns the default transaction settings of new connections.
func (c Config) TxSettings() (settings.TxSettings, error) {
	mode, err := client.ParseTxMode(c.TxMode)
	if err != nil {
		return settings.TxSettings{}, err
	}
	return settings.New(mode, c.AutoCommit), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log-level %q", s)
}

// Logger builds the logger described by the config, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WriteYAML writes the config as YAML.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
