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

// Package verifier checks X-Agent-Signature headers on the receiving side.
//
// Agent ids are self-certifying: an id is the SHA-256 of the agent's public
// key PEM. A verifier therefore only needs some source of PEMs (the Trust
// Directory, a static table, ...) and can confirm locally that the PEM it
// was handed really belongs to the claimed id.
//
// # Verification
//
//	resolver := verifier.NewStaticResolver()
//	resolver.Register(agentPEM)
//
//	v := verifier.NewDefaultVerifier(resolver)
//	err := v.VerifyRequest(ctx, agentID, body, signature)
//
// The body is re-encoded canonically before verification, so whitespace or
// key-order differences introduced in transit do not matter, while any
// change to a value does.
//
// # Error Handling
//
//   - Missing agent id or signature: validation error
//   - Unknown agent: security error wrapping ErrUnknownAgent
//   - Resolved key does not hash to the agent id: security error
//   - Body is not JSON: validation error
//   - Signature mismatch: security error
package verifier
