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

package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/amorce/amorce-go/pkg/cache"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/amorce/amorce-go/pkg/transport"
	"github.com/amorce/amorce-go/pkg/version"
	"github.com/rs/zerolog"
)

// Config holds the endpoints and credentials of a Client
type Config struct {
	// DirectoryURL is the base URL of the Trust Directory
	DirectoryURL string

	// OrchestratorURL is the base URL of the Orchestrator
	OrchestratorURL string

	// APIKey is sent as X-API-Key and X-ATP-Key when set
	APIKey string

	// AgentID overrides the id derived from the identity's public key. It is
	// sent as X-Amorce-Agent-ID and consumer_agent_id in both generations;
	// the envelope sender block always carries the derived id.
	AgentID string

	// Generation selects flat (default) or envelope signing
	Generation protocol.Generation
}

// NormalizeBaseURL checks that raw is an http(s) URL and strips trailing slashes.
func NormalizeBaseURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "", protocol.NewConfigurationError("config", "%s must start with http:// or https://, got %q", field, raw)
	}
	trimmed := strings.TrimRight(raw, "/")
	if trimmed == "http:" || trimmed == "https:" {
		return "", protocol.NewConfigurationError("config", "%s has no host", field)
	}
	return trimmed, nil
}

// Normalize validates cfg and returns a copy with canonical base URLs
func (cfg Config) Normalize() (Config, error) {
	var err error
	if cfg.DirectoryURL, err = NormalizeBaseURL("directory URL", cfg.DirectoryURL); err != nil {
		return Config{}, err
	}
	if cfg.OrchestratorURL, err = NormalizeBaseURL("orchestrator URL", cfg.OrchestratorURL); err != nil {
		return Config{}, err
	}
	if cfg.Generation, err = protocol.ParseGeneration(string(cfg.Generation)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Client discovers services and submits signed transactions.
// It is safe for concurrent use.
type Client struct {
	identity  *identity.Identity
	cfg       Config
	transport *transport.Transport
	builder   *signer.Builder
	logger    zerolog.Logger

	cache    cache.Cache
	cacheTTL time.Duration

	transportOpts []transport.Option
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used by the client and its default transport
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport replaces the default transport
func WithTransport(tr *transport.Transport) Option {
	return func(c *Client) {
		c.transport = tr
	}
}

// WithPolicy sets the retry policy of the default transport
func WithPolicy(policy transport.Policy) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, transport.WithPolicy(policy))
	}
}

// WithHTTPClient sets the HTTP client of the default transport
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, transport.WithHTTPClient(httpClient))
	}
}

// WithTransportOptions passes extra options to the default transport
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}

// WithBuilder replaces the envelope builder
func WithBuilder(builder *signer.Builder) Option {
	return func(c *Client) {
		c.builder = builder
	}
}

// WithCache caches discovery results for ttl
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// NewClient validates cfg and creates a Client. No network activity happens here.
func NewClient(id *identity.Identity, cfg Config, opts ...Option) (*Client, error) {
	if id == nil {
		return nil, protocol.NewConfigurationError("client", "identity is required")
	}
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}

	c := &Client{
		identity: id,
		cfg:      normalized,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = signer.NewBuilder()
	}
	if c.transport == nil {
		base := []transport.Option{
			transport.WithLogger(c.logger),
			transport.WithUserAgent(version.UserAgent()),
		}
		c.transport = transport.New(append(base, c.transportOpts...)...)
	}
	return c, nil
}

// Identity returns the signing identity
func (c *Client) Identity() *identity.Identity {
	return c.identity
}

// Config returns the normalized configuration
func (c *Client) Config() Config {
	return c.cfg
}

// AgentID returns the id sent as X-Amorce-Agent-ID
func (c *Client) AgentID() string {
	if c.cfg.AgentID != "" {
		return c.cfg.AgentID
	}
	return c.identity.AgentID()
}

func (c *Client) applyAPIKey(header http.Header) {
	if c.cfg.APIKey == "" {
		return
	}
	header.Set(protocol.HeaderAPIKey, c.cfg.APIKey)
	header.Set(protocol.HeaderATPKey, c.cfg.APIKey)
}
