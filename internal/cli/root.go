// Copyright (C) 2025 Amorce Project
//
// This file is part of amorce-go.
//
// amorce-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// amorce-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with amorce-go.  If not, see <https://www.gnu.org/licenses/>.

// Package cli implements the amorce command line tool.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/amorce/amorce-go/internal/config"
	"github.com/amorce/amorce-go/pkg/cache"
	"github.com/amorce/amorce-go/pkg/client"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/version"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	cfg    config.Config
	logger zerolog.Logger

	directoryURL    string
	orchestratorURL string
	apiKey          string
	agentID         string
	keyFile         string
	generation      string
	logLevel        string
	redisAddr       string
	maxRetries      int
	attemptTimeout  time.Duration
}

// New returns the root command
func New() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:           "amorce",
		Short:         "Sign, discover and transact with Amorce agents",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.directoryURL, "directory", "", "Trust Directory base URL (env "+config.EnvDirectoryURL+")")
	flags.StringVar(&a.orchestratorURL, "orchestrator", "", "Orchestrator base URL (env "+config.EnvOrchestratorURL+")")
	flags.StringVar(&a.apiKey, "api-key", "", "API key (env "+config.EnvAPIKey+")")
	flags.StringVar(&a.agentID, "agent-id", "", "explicit agent id (env "+config.EnvAgentID+")")
	flags.StringVar(&a.keyFile, "key-file", "", "private key file (env "+config.EnvKeyFile+")")
	flags.StringVar(&a.generation, "generation", "", "protocol generation: flat or envelope (env "+config.EnvGeneration+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (env "+config.EnvLogLevel+")")
	flags.StringVar(&a.redisAddr, "redis", "", "Redis address for the discovery cache (env "+config.EnvRedisAddr+")")
	flags.IntVar(&a.maxRetries, "max-retries", 0, "retries after the first attempt (env "+config.EnvMaxRetries+")")
	flags.DurationVar(&a.attemptTimeout, "attempt-timeout", 0, "timeout of a single HTTP attempt (env "+config.EnvAttemptTimeout+")")

	cmd.AddCommand(
		newKeygenCmd(a),
		newIDCmd(a),
		newDiscoverCmd(a),
		newTransactCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newDevserverCmd(a),
	)
	return cmd
}

// Execute runs the root command with os.Args
func Execute() int {
	cmd := New()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// load merges environment and flags. Flags win.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("directory") {
		cfg.DirectoryURL = a.directoryURL
	}
	if changed("orchestrator") {
		cfg.OrchestratorURL = a.orchestratorURL
	}
	if changed("api-key") {
		cfg.APIKey = a.apiKey
	}
	if changed("agent-id") {
		cfg.AgentID = a.agentID
	}
	if changed("key-file") {
		cfg.KeyFile = a.keyFile
	}
	if changed("generation") {
		cfg.Generation = protocol.Generation(a.generation)
	}
	if changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if changed("redis") {
		cfg.RedisAddr = a.redisAddr
	}
	if changed("max-retries") {
		cfg.MaxRetries = a.maxRetries
	}
	if changed("attempt-timeout") {
		cfg.AttemptTimeout = a.attemptTimeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

func (a *app) identity(ctx context.Context) (*identity.Identity, error) {
	id, err := identity.Load(ctx, a.cfg.KeyProvider())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load agent key (run `amorce keygen` first)")
	}
	return id, nil
}

func (a *app) client(ctx context.Context) (*client.Client, error) {
	id, err := a.identity(ctx)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithLogger(a.logger),
		client.WithPolicy(a.cfg.Policy()),
	}
	if a.cfg.CacheTTL > 0 {
		var store cache.Cache = cache.NewMemoryCache()
		if a.cfg.RedisAddr != "" {
			redisCache, err := cache.DialRedis(ctx, a.cfg.RedisAddr)
			if err != nil {
				a.logger.Warn().Err(err).Msg("Redis unavailable, using in-memory discovery cache")
			} else {
				store = redisCache
			}
		}
		opts = append(opts, client.WithCache(store, a.cfg.CacheTTL))
	}
	return client.NewClient(id, a.cfg.ClientConfig(), opts...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}

func parsePayload(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var payload map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, protocol.NewValidationError("payload", "payload must be a JSON object: %v", err)
	}
	return payload, nil
}
