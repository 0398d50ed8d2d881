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

// Package devserver is a local Trust Directory and Orchestrator for
// development and end-to-end tests. State lives in memory.
package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amorce/amorce-go/pkg/cache"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/server"
	"github.com/amorce/amorce-go/pkg/verifier"
	"github.com/amorce/amorce-go/pkg/version"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// AgentsPath registers an agent's public key
const AgentsPath = "/api/v1/agents"

// ServicesPath publishes a service contract
const ServicesPath = "/api/v1/services"

// Transaction is a request accepted by the orchestrator
type Transaction struct {
	ID              string
	ServiceID       string
	ConsumerAgentID string
	Priority        protocol.Priority
	Payload         map[string]any
	IdempotencyKey  string
	ReceivedAt      time.Time
}

type registerAgentRequest struct {
	AgentID   string `json:"agent_id"`
	PublicKey string `json:"public_key"`
}

// Server serves the directory and orchestrator routes
type Server struct {
	echo       *echo.Echo
	logger     zerolog.Logger
	generation protocol.Generation
	resolver   *verifier.StaticResolver
	store      cache.Cache

	failRemaining atomic.Int32
	failStatus    int

	mu           sync.RWMutex
	services     []protocol.ServiceContract
	transactions []Transaction
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGeneration selects how transact requests are verified
func WithGeneration(gen protocol.Generation) Option {
	return func(s *Server) {
		s.generation = gen
	}
}

// WithFailFirst makes the first n transact requests fail with status
func WithFailFirst(n int, status int) Option {
	return func(s *Server) {
		s.failRemaining.Store(int32(n))
		s.failStatus = status
	}
}

// WithIdempotencyStore keeps replayable responses in store
func WithIdempotencyStore(store cache.Cache) Option {
	return func(s *Server) {
		s.store = store
	}
}

// New creates a Server with its routes registered
func New(opts ...Option) *Server {
	s := &Server{
		logger:     zerolog.Nop(),
		generation: protocol.GenerationFlat,
		resolver:   verifier.NewStaticResolver(),
		failStatus: http.StatusServiceUnavailable,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.requestLogger)
	s.echo = e

	auth := server.NewSignatureMiddlewareWithVerifier(verifier.ForGeneration(s.generation, s.resolver))
	auth.SetLogger(s.logger)
	idem := server.NewIdempotencyMiddleware(s.store, 0)
	idem.SetLogger(s.logger)

	e.GET("/health", s.health)
	e.GET(protocol.SearchPath, s.searchServices)
	e.POST(ServicesPath, s.publishService)
	e.POST(AgentsPath, s.registerAgent)
	e.POST(protocol.TransactPath, s.transact,
		s.injectFailures,
		echo.WrapMiddleware(auth.Wrap),
		echo.WrapMiddleware(idem.Wrap),
	)
	return s
}

// Handler returns the HTTP handler, for httptest servers
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Str("generation", string(s.generation)).Msg("Starting devserver")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "devserver stopped")
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// RegisterAgent makes an agent's key known to the orchestrator
func (s *Server) RegisterAgent(publicKeyPEM string) (string, error) {
	return s.resolver.Register(publicKeyPEM)
}

// PublishService adds a contract to the directory
func (s *Server) PublishService(contract protocol.ServiceContract) error {
	if err := contract.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.services {
		if existing.ServiceID == contract.ServiceID {
			s.services[i] = contract
			return nil
		}
	}
	s.services = append(s.services, contract)
	return nil
}

// Transactions returns the accepted transactions in arrival order
func (s *Server) Transactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction(nil), s.transactions...)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":     "ok",
		"version":    version.Version,
		"generation": string(s.generation),
	})
}

func (s *Server) searchServices(c echo.Context) error {
	serviceType := c.QueryParam("service_type")
	if serviceType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "service_type is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]protocol.ServiceContract, 0, len(s.services))
	for _, contract := range s.services {
		if contract.ServiceType == serviceType {
			matches = append(matches, contract)
		}
	}
	return c.JSON(http.StatusOK, matches)
}

func (s *Server) publishService(c echo.Context) error {
	var contract protocol.ServiceContract
	if err := json.NewDecoder(c.Request().Body).Decode(&contract); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service contract")
	}
	if err := s.PublishService(contract); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, contract)
}

func (s *Server) registerAgent(c echo.Context) error {
	var req registerAgentRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration")
	}
	if req.AgentID != "" && req.AgentID != identity.AgentIDFromPEM(req.PublicKey) {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id does not match public_key")
	}
	agentID, err := s.RegisterAgent(req.PublicKey)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"agent_id": agentID})
}

func (s *Server) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		for {
			remaining := s.failRemaining.Load()
			if remaining <= 0 {
				return next(c)
			}
			if s.failRemaining.CompareAndSwap(remaining, remaining-1) {
				return c.JSON(s.failStatus, map[string]string{"error": "injected failure"})
			}
		}
	}
}

func (s *Server) transact(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}

	tx, err := s.decodeTransaction(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tx.ID = "tx-" + uuid.NewString()
	tx.IdempotencyKey = c.Request().Header.Get(protocol.HeaderIdempotency)
	tx.ReceivedAt = time.Now().UTC()

	s.mu.Lock()
	s.transactions = append(s.transactions, tx)
	s.mu.Unlock()

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("service_id", tx.ServiceID).
		Str("consumer_agent_id", tx.ConsumerAgentID).
		Str("priority", string(tx.Priority)).
		Msg("Transaction accepted")

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "success",
		"transaction_id": tx.ID,
		"message":        "transaction accepted",
		"data":           map[string]any{"echo": tx.Payload},
	})
}

func (s *Server) decodeTransaction(body []byte) (Transaction, error) {
	if s.generation == protocol.GenerationEnvelope {
		env, err := verifier.DecodeEnvelope(body)
		if err != nil {
			return Transaction{}, err
		}
		tx := Transaction{Priority: env.Priority}
		tx.ServiceID, _ = env.Payload["service_id"].(string)
		tx.ConsumerAgentID, _ = env.Payload["consumer_agent_id"].(string)
		tx.Payload, _ = env.Payload["payload"].(map[string]any)
		if tx.ServiceID == "" {
			return Transaction{}, errors.New("service_id is required")
		}
		return tx, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var req protocol.TransactionRequest
	if err := dec.Decode(&req); err != nil {
		return Transaction{}, errors.Wrap(err, "invalid transaction request")
	}
	if req.ServiceID == "" {
		return Transaction{}, errors.New("service_id is required")
	}
	if !req.Priority.Valid() {
		return Transaction{}, errors.Errorf("invalid priority %q", req.Priority)
	}
	return Transaction{
		ServiceID:       req.ServiceID,
		ConsumerAgentID: req.ConsumerAgentID,
		Priority:        req.Priority,
		Payload:         req.Payload,
	}, nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug().
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("Request")
		return nil
	}
}
