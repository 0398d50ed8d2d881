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

package config

import (
	"testing"
	"time"

	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(nil))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		EnvDirectoryURL:    "https://dir.example.com/",
		EnvOrchestratorURL: " https://orch.example.com ",
		EnvAPIKey:          "secret",
		EnvAgentID:         "agent-1",
		EnvKeyFile:         "/etc/amorce/key",
		EnvGeneration:      "envelope",
		EnvAttemptTimeout:  "5s",
		EnvMaxRetries:      "1",
		EnvCacheTTL:        "30s",
		EnvRedisAddr:       "localhost:6379",
		EnvLogLevel:        "DEBUG",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://dir.example.com", cfg.DirectoryURL)
	assert.Equal(t, "https://orch.example.com", cfg.OrchestratorURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, protocol.GenerationEnvelope, cfg.Generation)
	assert.Equal(t, 5*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	policy := cfg.Policy()
	assert.Equal(t, 1, policy.MaxRetries)
	assert.Equal(t, 5*time.Second, policy.AttemptTimeout)

	cc := cfg.ClientConfig()
	assert.Equal(t, "agent-1", cc.AgentID)
	assert.Equal(t, "secret", cc.APIKey)
}

func TestFromEnv_Malformed(t *testing.T) {
	for name, value := range map[string]string{
		EnvMaxRetries:     "three",
		EnvAttemptTimeout: "10",
		EnvCacheTTL:       "soon",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fromLookup(lookupFrom(map[string]string{name: value}))
			require.Error(t, err)
			assert.True(t, protocol.IsKind(err, protocol.ErrKindConfiguration))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad directory", func(c *Config) { c.DirectoryURL = "dir.example.com" }},
		{"bad orchestrator", func(c *Config) { c.OrchestratorURL = "tcp://x" }},
		{"bad generation", func(c *Config) { c.Generation = "v3" }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, protocol.IsKind(err, protocol.ErrKindConfiguration))
		})
	}
}

func TestKeyProvider(t *testing.T) {
	cfg := Default()
	cfg.KeyEnv = "AMORCE_TEST_KEY_PROVIDER"
	cfg.KeyFile = "/tmp/agent.key"

	assert.Equal(t, identity.FileProvider{Path: "/tmp/agent.key"}, cfg.KeyProvider())

	t.Setenv("AMORCE_TEST_KEY_PROVIDER", "00")
	assert.Equal(t, identity.EnvProvider{Var: "AMORCE_TEST_KEY_PROVIDER"}, cfg.KeyProvider())
}
