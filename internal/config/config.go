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

// Package config loads amorce-go settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amorce/amorce-go/pkg/client"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/transport"
	"github.com/rs/zerolog"
)

// Environment variables read by FromEnv
const (
	EnvDirectoryURL    = "AMORCE_DIRECTORY_URL"
	EnvOrchestratorURL = "AMORCE_ORCHESTRATOR_URL"
	EnvAPIKey          = "AMORCE_API_KEY"
	EnvAgentID         = "AMORCE_AGENT_ID"
	EnvKeyFile         = "AMORCE_KEY_FILE"
	EnvPrivateKey      = "AMORCE_PRIVATE_KEY"
	EnvGeneration      = "AMORCE_GENERATION"
	EnvAttemptTimeout  = "AMORCE_ATTEMPT_TIMEOUT"
	EnvMaxRetries      = "AMORCE_MAX_RETRIES"
	EnvCacheTTL        = "AMORCE_CACHE_TTL"
	EnvRedisAddr       = "AMORCE_REDIS_ADDR"
	EnvLogLevel        = "AMORCE_LOG_LEVEL"
)

// Defaults
const (
	DefaultDirectoryURL    = "http://localhost:8080"
	DefaultOrchestratorURL = "http://localhost:8080"
	DefaultKeyFile         = "agent.key"
	DefaultCacheTTL        = 5 * time.Minute
	DefaultLogLevel        = "info"
)

// Config is the complete runtime configuration of the CLI and devserver
type Config struct {
	DirectoryURL    string              `json:"directory_url"`
	OrchestratorURL string              `json:"orchestrator_url"`
	APIKey          string              `json:"-"`
	AgentID         string              `json:"agent_id,omitempty"`
	KeyFile         string              `json:"key_file"`
	KeyEnv          string              `json:"key_env"`
	Generation      protocol.Generation `json:"generation"`
	AttemptTimeout  time.Duration       `json:"attempt_timeout"`
	MaxRetries      int                 `json:"max_retries"`
	CacheTTL        time.Duration       `json:"cache_ttl"`
	RedisAddr       string              `json:"redis_addr,omitempty"`
	LogLevel        string              `json:"log_level"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		DirectoryURL:    DefaultDirectoryURL,
		OrchestratorURL: DefaultOrchestratorURL,
		KeyFile:         DefaultKeyFile,
		KeyEnv:          EnvPrivateKey,
		Generation:      protocol.GenerationFlat,
		AttemptTimeout:  transport.DefaultAttemptTimeout,
		MaxRetries:      transport.DefaultMaxRetries,
		CacheTTL:        DefaultCacheTTL,
		LogLevel:        DefaultLogLevel,
	}
}

// FromEnv overlays environment variables on Default. Malformed numbers
// and durations are configuration errors.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvDirectoryURL); ok {
		cfg.DirectoryURL = v
	}
	if v, ok := get(EnvOrchestratorURL); ok {
		cfg.OrchestratorURL = v
	}
	if v, ok := get(EnvAPIKey); ok {
		cfg.APIKey = v
	}
	if v, ok := get(EnvAgentID); ok {
		cfg.AgentID = v
	}
	if v, ok := get(EnvKeyFile); ok {
		cfg.KeyFile = v
	}
	if v, ok := get(EnvGeneration); ok {
		cfg.Generation = protocol.Generation(v)
	}
	if v, ok := get(EnvRedisAddr); ok {
		cfg.RedisAddr = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := get(EnvMaxRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, protocol.NewConfigurationError("config", "%s: %q is not an integer", EnvMaxRetries, v)
		}
		cfg.MaxRetries = n
	}
	for name, target := range map[string]*time.Duration{
		EnvAttemptTimeout: &cfg.AttemptTimeout,
		EnvCacheTTL:       &cfg.CacheTTL,
	} {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, protocol.NewConfigurationError("config", "%s: %q is not a duration", name, v)
			}
			*target = d
		}
	}
	return cfg, nil
}

// Validate checks every field and normalizes the base URLs in place
func (c *Config) Validate() error {
	var err error
	if c.DirectoryURL, err = client.NormalizeBaseURL("directory URL", c.DirectoryURL); err != nil {
		return err
	}
	if c.OrchestratorURL, err = client.NormalizeBaseURL("orchestrator URL", c.OrchestratorURL); err != nil {
		return err
	}
	if c.Generation, err = protocol.ParseGeneration(string(c.Generation)); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return protocol.NewConfigurationError("config", "max retries cannot be negative")
	}
	if c.AttemptTimeout < 0 || c.CacheTTL < 0 {
		return protocol.NewConfigurationError("config", "durations cannot be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, protocol.NewConfigurationError("config", "invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// ClientConfig returns the client part of the configuration
func (c Config) ClientConfig() client.Config {
	return client.Config{
		DirectoryURL:    c.DirectoryURL,
		OrchestratorURL: c.OrchestratorURL,
		APIKey:          c.APIKey,
		AgentID:         c.AgentID,
		Generation:      c.Generation,
	}
}

// Policy returns the retry policy
func (c Config) Policy() transport.Policy {
	policy := transport.DefaultPolicy()
	policy.MaxRetries = c.MaxRetries
	policy.AttemptTimeout = c.AttemptTimeout
	return policy
}

// KeyProvider returns the provider for the agent key. The environment
// variable wins over the key file when it is set.
func (c Config) KeyProvider() identity.KeyProvider {
	if c.KeyEnv != "" {
		if v, ok := os.LookupEnv(c.KeyEnv); ok && strings.TrimSpace(v) != "" {
			return identity.EnvProvider{Var: c.KeyEnv}
		}
	}
	return identity.FileProvider{Path: c.KeyFile}
}
