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
	"net/http"

	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
)

// Signer signs outgoing protocol messages with the agent's identity.
type Signer interface {
	// SignEnvelope binds the signature of an envelope built by Builder.
	// The signature covers every field except the signature itself.
	SignEnvelope(ctx context.Context, env *protocol.Envelope, id *identity.Identity) error

	// SignRequest canonicalizes a flat transaction request and signs it.
	// The returned body is exactly the signed bytes.
	SignRequest(ctx context.Context, req *protocol.TransactionRequest, id *identity.Identity) (*SignedRequest, error)
}

// SignedRequest is a flat transaction request ready for transmission.
type SignedRequest struct {
	// Body is the canonical JSON of the request, sent as the HTTP body.
	Body []byte

	// Signature is the base64 Ed25519 signature over Body.
	Signature string

	// AgentID identifies the signer.
	AgentID string
}

// ApplyHeaders sets the signature and agent headers on an HTTP request.
func (s *SignedRequest) ApplyHeaders(header http.Header) {
	header.Set("Content-Type", "application/json")
	header.Set(protocol.HeaderSignature, s.Signature)
	header.Set(protocol.HeaderAgentID, s.AgentID)
}
