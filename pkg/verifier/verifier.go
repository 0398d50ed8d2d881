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

package verifier

import (
	"context"
	"sync"

	"github.com/amorce/amorce-go/pkg/canonical"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/pkg/errors"
)

// ErrUnknownAgent is returned by resolvers that have no key for an agent id.
var ErrUnknownAgent = errors.New("unknown agent")

// KeyResolver resolves an agent id to its public key PEM
type KeyResolver interface {
	ResolvePublicKey(ctx context.Context, agentID string) (string, error)
}

// RequestVerifier verifies flat transaction requests
type RequestVerifier interface {
	// VerifyRequest checks that signature is agentID's signature over the
	// canonical form of body.
	VerifyRequest(ctx context.Context, agentID string, body []byte, signature string) error
}

// StaticResolver is an in-memory KeyResolver
type StaticResolver struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewStaticResolver creates an empty StaticResolver
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{keys: make(map[string]string)}
}

// Register stores a public key PEM under its derived agent id and returns the id
func (r *StaticResolver) Register(publicKeyPEM string) (string, error) {
	if _, err := identity.PEMToRawKey(publicKeyPEM); err != nil {
		return "", err
	}
	agentID := identity.AgentIDFromPEM(publicKeyPEM)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[agentID] = publicKeyPEM
	return agentID, nil
}

// ResolvePublicKey implements KeyResolver
func (r *StaticResolver) ResolvePublicKey(ctx context.Context, agentID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pem, ok := r.keys[agentID]
	if !ok {
		return "", errors.Wrapf(ErrUnknownAgent, "agent %s", agentID)
	}
	return pem, nil
}

// DefaultVerifier verifies requests with keys from a KeyResolver
type DefaultVerifier struct {
	resolver KeyResolver
}

var _ RequestVerifier = (*DefaultVerifier)(nil)

// NewDefaultVerifier creates a DefaultVerifier
func NewDefaultVerifier(resolver KeyResolver) *DefaultVerifier {
	return &DefaultVerifier{resolver: resolver}
}

// VerifyRequest implements RequestVerifier
func (v *DefaultVerifier) VerifyRequest(ctx context.Context, agentID string, body []byte, signature string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context error")
	}
	if agentID == "" {
		return protocol.NewValidationError("verify.request", "missing %s header", protocol.HeaderAgentID)
	}
	if signature == "" {
		return protocol.NewValidationError("verify.request", "missing %s header", protocol.HeaderSignature)
	}
	if v.resolver == nil {
		return protocol.NewSecurityError("verify.request", nil, "key resolver not configured")
	}

	publicKeyPEM, err := v.resolver.ResolvePublicKey(ctx, agentID)
	if err != nil {
		return protocol.NewSecurityError("verify.request", err, "failed to resolve public key")
	}
	if identity.AgentIDFromPEM(publicKeyPEM) != agentID {
		return protocol.NewSecurityError("verify.request", nil, "resolved key does not match agent id %s", agentID)
	}

	signed, err := canonical.Canonicalize(body)
	if err != nil {
		return protocol.NewValidationError("verify.request", "body is not valid JSON: %v", err)
	}
	if !identity.VerifyPEM(signed, signature, publicKeyPEM) {
		return protocol.NewSecurityError("verify.request", nil, "signature verification failed")
	}
	return nil
}
