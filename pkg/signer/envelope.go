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

package signer

import (
	"context"
	"time"

	"github.com/amorce/amorce-go/pkg/canonical"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultCurrency is used for the zeroed settlement block of new envelopes.
const DefaultCurrency = "USD"

// Builder assembles and signs protocol messages.
type Builder struct {
	now   func() time.Time
	newID func() string
}

var _ Signer = (*Builder)(nil)

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source used for envelope timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// WithIDGenerator overrides the envelope id generator.
func WithIDGenerator(newID func() string) BuilderOption {
	return func(b *Builder) {
		b.newID = newID
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SenderFor returns the sender block describing id.
func SenderFor(id *identity.Identity) protocol.Sender {
	return protocol.Sender{
		PublicKeyPEM: id.PublicKeyPEM(),
		AgentID:      id.AgentID(),
	}
}

// Build assembles an unsigned envelope with a fresh id, the current
// timestamp and a zeroed settlement block.
func (b *Builder) Build(sender protocol.Sender, payload map[string]any, priority protocol.Priority) (*protocol.Envelope, error) {
	if !priority.Valid() {
		return nil, protocol.NewValidationError("envelope.build", "invalid priority %q", priority)
	}
	if sender.PublicKeyPEM == "" {
		return nil, protocol.NewValidationError("envelope.build", "sender public key is required")
	}

	now := b.now()
	return &protocol.Envelope{
		ProtocolVersion: protocol.EnvelopeVersion,
		ID:              b.newID(),
		Priority:        priority,
		Timestamp:       float64(now.UnixMicro()) / 1e6,
		Sender:          sender,
		Payload:         payload,
		Settlement: protocol.Settlement{
			Currency: DefaultCurrency,
		},
	}, nil
}

// CanonicalEnvelopeBytes returns the bytes an envelope signature covers.
func CanonicalEnvelopeBytes(env *protocol.Envelope) ([]byte, error) {
	if env == nil {
		return nil, protocol.NewValidationError("envelope.canonical", "envelope cannot be nil")
	}
	unsigned := *env
	unsigned.Signature = ""
	data, err := canonical.Marshal(&unsigned)
	if err != nil {
		return nil, errors.Wrap(err, "failed to canonicalize envelope")
	}
	return data, nil
}

// SignEnvelope signs env with id. An envelope is signed exactly once.
func (b *Builder) SignEnvelope(ctx context.Context, env *protocol.Envelope, id *identity.Identity) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context error")
	}
	if env == nil {
		return protocol.NewValidationError("envelope.sign", "envelope cannot be nil")
	}
	if id == nil {
		return protocol.NewSecurityError("envelope.sign", nil, "identity cannot be nil")
	}
	if env.IsSigned() {
		return protocol.NewValidationError("envelope.sign", "envelope %s is already signed", env.ID)
	}
	if env.Sender.PublicKeyPEM != id.PublicKeyPEM() {
		return protocol.NewSecurityError("envelope.sign", nil, "sender public key does not belong to signing identity")
	}

	data, err := CanonicalEnvelopeBytes(env)
	if err != nil {
		return protocol.NewSecurityError("envelope.sign", err, "failed to build signing input")
	}
	env.Signature = id.SignMessage(data)
	return nil
}

// VerifyEnvelope checks env's signature against the public key in its
// sender block. A missing signature or unusable sender block is a
// validation error; a signature that does not match yields false.
func VerifyEnvelope(env *protocol.Envelope) (bool, error) {
	if env == nil {
		return false, protocol.NewValidationError("envelope.verify", "envelope cannot be nil")
	}
	if !env.IsSigned() {
		return false, protocol.NewValidationError("envelope.verify", "envelope %s has no signature", env.ID)
	}
	publicKey, err := identity.PEMToRawKey(env.Sender.PublicKeyPEM)
	if err != nil {
		return false, err
	}
	if env.Sender.AgentID != "" && env.Sender.AgentID != identity.AgentIDFromPEM(env.Sender.PublicKeyPEM) {
		return false, protocol.NewValidationError("envelope.verify", "sender agent_id does not match public key")
	}

	data, err := CanonicalEnvelopeBytes(env)
	if err != nil {
		return false, protocol.NewValidationError("envelope.verify", "failed to canonicalize envelope: %v", err)
	}
	return identity.Verify(data, env.Signature, publicKey), nil
}

// SignRequest canonicalizes req and signs the resulting bytes.
func (b *Builder) SignRequest(ctx context.Context, req *protocol.TransactionRequest, id *identity.Identity) (*SignedRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "context error")
	}
	if req == nil {
		return nil, protocol.NewValidationError("request.sign", "request cannot be nil")
	}
	if id == nil {
		return nil, protocol.NewSecurityError("request.sign", nil, "identity cannot be nil")
	}
	if req.ServiceID == "" {
		return nil, protocol.NewConfigurationError("request.sign", "service_id is required")
	}
	if !req.Priority.Valid() {
		return nil, protocol.NewValidationError("request.sign", "invalid priority %q", req.Priority)
	}

	body, err := canonical.Marshal(req)
	if err != nil {
		return nil, protocol.NewSecurityError("request.sign", err, "failed to canonicalize request")
	}

	agentID := req.ConsumerAgentID
	if agentID == "" {
		agentID = id.AgentID()
	}
	return &SignedRequest{
		Body:      body,
		Signature: id.SignMessage(body),
		AgentID:   agentID,
	}, nil
}
