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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/amorce/amorce-go/pkg/verifier"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockVerifier for testing
type mockVerifier struct {
	shouldSucceed bool
	gotBody       []byte
}

func (m *mockVerifier) VerifyRequest(ctx context.Context, agentID string, body []byte, signature string) error {
	m.gotBody = body
	if !m.shouldSucceed {
		return errors.New("signature verification failed")
	}
	return nil
}

func signedRequest(t *testing.T, id *identity.Identity) *http.Request {
	t.Helper()
	signed, err := signer.NewBuilder().SignRequest(context.Background(), &protocol.TransactionRequest{
		ServiceID:       "svc-1",
		ConsumerAgentID: id.AgentID(),
		Payload:         map[string]any{"q": "x"},
		Priority:        protocol.PriorityNormal,
	}, id)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, protocol.TransactPath, bytes.NewReader(signed.Body))
	signed.ApplyHeaders(req.Header)
	return req
}

func TestSignatureMiddleware_ValidSignature(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	resolver := verifier.NewStaticResolver()
	_, err = resolver.Register(id.PublicKeyPEM())
	require.NoError(t, err)

	middleware := NewSignatureMiddleware(resolver)

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true

		agentID, ok := AgentIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, id.AgentID(), agentID)

		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, signedRequest(t, id))

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignatureMiddleware_UnknownAgent(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	middleware := NewSignatureMiddleware(verifier.NewStaticResolver())

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, signedRequest(t, id))

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignatureMiddleware_MissingSignature(t *testing.T) {
	middleware := NewSignatureMiddleware(verifier.NewStaticResolver())

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, req)

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing signature")
}

func TestSignatureMiddleware_InvalidSignature(t *testing.T) {
	middleware := NewSignatureMiddlewareWithVerifier(&mockVerifier{shouldSucceed: false})

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(protocol.HeaderSignature, "invalid-signature")
	req.Header.Set(protocol.HeaderAgentID, "agent-1")

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, req)

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignatureMiddleware_CustomErrorHandler(t *testing.T) {
	customErrorCalled := false
	middleware := NewSignatureMiddleware(verifier.NewStaticResolver())
	middleware.SetErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		customErrorCalled = true
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("custom error"))
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.True(t, customErrorCalled)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "custom error", rr.Body.String())
}

func TestSignatureMiddleware_OptionalVerification(t *testing.T) {
	middleware := NewSignatureMiddleware(verifier.NewStaticResolver())
	middleware.SetOptional(true)

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true

		// Agent id should not be in context for unsigned requests
		_, ok := AgentIDFromContext(r.Context())
		assert.False(t, ok)

		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignatureMiddleware_OptionsRequest(t *testing.T) {
	middleware := NewSignatureMiddleware(verifier.NewStaticResolver())

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/test", nil))

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignatureMiddleware_PreservesBody(t *testing.T) {
	mock := &mockVerifier{shouldSucceed: true}
	middleware := NewSignatureMiddlewareWithVerifier(mock)

	originalBody := []byte(`{"method": "test", "data": "important"}`)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, originalBody, body)

		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(originalBody))
	req.Header.Set(protocol.HeaderSignature, "mock-signature")
	req.Header.Set(protocol.HeaderAgentID, "agent-1")

	rr := httptest.NewRecorder()
	middleware.Wrap(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, originalBody, mock.gotBody)
}

func TestAgentIDFromContext(t *testing.T) {
	_, ok := AgentIDFromContext(context.Background())
	assert.False(t, ok)

	agentID, ok := AgentIDFromContext(WithAgentID(context.Background(), "agent-1"))
	assert.True(t, ok)
	assert.Equal(t, "agent-1", agentID)
}
