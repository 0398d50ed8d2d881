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

package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/verifier"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type contextKey string

const agentIDKey contextKey = "amorce_agent_id"

// maxBodyBytes bounds the body read for verification
const maxBodyBytes = 4 << 20

// ErrorHandler handles verification errors
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// SignatureMiddleware verifies X-Agent-Signature on incoming requests
type SignatureMiddleware struct {
	verifier     verifier.RequestVerifier
	errorHandler ErrorHandler
	optional     bool
	logger       zerolog.Logger
}

// NewSignatureMiddleware creates middleware verifying flat requests with keys from resolver
func NewSignatureMiddleware(resolver verifier.KeyResolver) *SignatureMiddleware {
	return NewSignatureMiddlewareWithVerifier(verifier.NewDefaultVerifier(resolver))
}

// NewSignatureMiddlewareWithVerifier creates middleware with a custom verifier
func NewSignatureMiddlewareWithVerifier(requestVerifier verifier.RequestVerifier) *SignatureMiddleware {
	return &SignatureMiddleware{
		verifier:     requestVerifier,
		errorHandler: defaultErrorHandler,
		logger:       zerolog.Nop(),
	}
}

// SetErrorHandler sets a custom error handler
func (m *SignatureMiddleware) SetErrorHandler(handler ErrorHandler) {
	m.errorHandler = handler
}

// SetOptional sets whether signature verification is optional
// If true, requests without signatures are allowed to pass through
func (m *SignatureMiddleware) SetOptional(optional bool) {
	m.optional = optional
}

// SetLogger sets the logger for rejected requests
func (m *SignatureMiddleware) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// Wrap wraps an HTTP handler with signature verification
func (m *SignatureMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip verification for OPTIONS requests (CORS preflight)
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(protocol.HeaderSignature)
		agentID := r.Header.Get(protocol.HeaderAgentID)
		if signature == "" || agentID == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, errors.New("missing signature headers"))
			return
		}

		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			r.Body.Close()
			if err != nil {
				m.reject(w, r, errors.Wrap(err, "failed to read body"))
				return
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := m.verifier.VerifyRequest(r.Context(), agentID, body, signature); err != nil {
			m.reject(w, r, errors.Wrap(err, "signature verification failed"))
			return
		}

		// Restore body for handler
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(WithAgentID(r.Context(), agentID)))
	})
}

func (m *SignatureMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.Warn().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("agent_id", r.Header.Get(protocol.HeaderAgentID)).
		Err(err).
		Msg("Rejected request")
	m.errorHandler(w, r, err)
}

// WithAgentID returns a context carrying a verified agent id
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// AgentIDFromContext extracts the verified agent id from request context
func AgentIDFromContext(ctx context.Context) (string, bool) {
	agentID, ok := ctx.Value(agentIDKey).(string)
	return agentID, ok
}

// defaultErrorHandler is the default error handler
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	http.Error(w, fmt.Sprintf("Unauthorized: %s", err.Error()), http.StatusUnauthorized)
}
