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
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/pkg/errors"
)

// EnvelopeVerifier verifies requests whose body is a signed Envelope.
// The X-Agent-Signature header must repeat the embedded signature.
type EnvelopeVerifier struct {
	resolver KeyResolver
}

var _ RequestVerifier = (*EnvelopeVerifier)(nil)

// NewEnvelopeVerifier creates an EnvelopeVerifier. With a nil resolver the
// sender block is trusted on its own, which only proves the body was not
// altered after signing.
func NewEnvelopeVerifier(resolver KeyResolver) *EnvelopeVerifier {
	return &EnvelopeVerifier{resolver: resolver}
}

// ForGeneration returns the verifier matching a protocol generation
func ForGeneration(gen protocol.Generation, resolver KeyResolver) RequestVerifier {
	if gen == protocol.GenerationEnvelope {
		return NewEnvelopeVerifier(resolver)
	}
	return NewDefaultVerifier(resolver)
}

// DecodeEnvelope parses body keeping numbers exact
func DecodeEnvelope(body []byte) (*protocol.Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env protocol.Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, protocol.NewValidationError("verify.envelope", "body is not a valid envelope: %v", err)
	}
	return &env, nil
}

// VerifyRequest implements RequestVerifier
func (v *EnvelopeVerifier) VerifyRequest(ctx context.Context, agentID string, body []byte, signature string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context error")
	}
	if agentID == "" {
		return protocol.NewValidationError("verify.envelope", "missing %s header", protocol.HeaderAgentID)
	}

	env, err := DecodeEnvelope(body)
	if err != nil {
		return err
	}
	if signature != "" && signature != env.Signature {
		return protocol.NewSecurityError("verify.envelope", nil, "header signature does not match envelope signature")
	}
	if identity.AgentIDFromPEM(env.Sender.PublicKeyPEM) != agentID {
		return protocol.NewSecurityError("verify.envelope", nil, "envelope sender is not agent %s", agentID)
	}
	if v.resolver != nil {
		known, err := v.resolver.ResolvePublicKey(ctx, agentID)
		if err != nil {
			return protocol.NewSecurityError("verify.envelope", err, "failed to resolve public key")
		}
		if strings.TrimSpace(known) != strings.TrimSpace(env.Sender.PublicKeyPEM) {
			return protocol.NewSecurityError("verify.envelope", nil, "envelope sender key differs from registered key")
		}
	}

	ok, err := signer.VerifyEnvelope(env)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.NewSecurityError("verify.envelope", nil, "signature verification failed")
	}
	return nil
}
