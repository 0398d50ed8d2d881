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

// Package signer builds and signs protocol messages for both wire
// generations.
//
// # Flat generation
//
// The current generation signs the canonical bytes of the request body
//
//	{"consumer_agent_id":...,"payload":...,"priority":...,"service_id":...}
//
// and sends the base64 signature in the X-Agent-Signature header. The body
// is transmitted as exactly those bytes, so the receiver can verify either
// the raw body or its own canonical re-encoding of it:
//
//	b := signer.NewBuilder()
//	signed, err := b.SignRequest(ctx, &protocol.TransactionRequest{
//	    ServiceID:       "svc-weather",
//	    ConsumerAgentID: id.AgentID(),
//	    Payload:         map[string]any{"city": "Paris"},
//	    Priority:        protocol.PriorityNormal,
//	}, id)
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(signed.Body))
//	signed.ApplyHeaders(req.Header)
//
// # Envelope generation
//
// The legacy generation wraps the payload in an Envelope whose signature
// field covers the canonical bytes of every other field:
//
//	env, err := b.Build(signer.SenderFor(id), payload, protocol.PriorityHigh)
//	err = b.SignEnvelope(ctx, env, id)
//
//	ok, err := signer.VerifyEnvelope(env)
//
// VerifyEnvelope returns a validation error when the envelope carries no
// signature or an unusable sender block, and false when the signature does
// not match.
//
// # Error Handling
//
// Common signing errors:
//
//   - Nil envelope or request: validation error
//   - Nil identity: security error
//   - Invalid priority: validation error
//   - Missing service_id: configuration error
//   - Already signed: validation error
//   - Context canceled: operation interrupted
package signer
