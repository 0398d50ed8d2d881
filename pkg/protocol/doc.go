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

// Package protocol defines the wire types shared by every amorce package.
//
// It holds the flat TransactionRequest, the signed Envelope, the
// ServiceContract returned by the Trust Directory and the
// TransactionResponse produced by the Orchestrator, together with the
// header names and paths of the HTTP surface.
//
// # Generations
//
// A deployment signs requests one of two ways:
//
//   - GenerationFlat signs the canonical request body and carries the
//     signature in the X-Agent-Signature header.
//   - GenerationEnvelope embeds the signature in an Envelope and repeats
//     it in the header.
//
// # Errors
//
// Every terminal failure surfaces as *Error. Use IsKind to branch on the
// category and StatusCode to read the last HTTP status:
//
//	resp, err := c.Transact(ctx, contract, payload)
//	if protocol.IsKind(err, protocol.ErrKindNetwork) {
//	    log.Printf("orchestrator unavailable (last status %d)", protocol.StatusCode(err))
//	}
package protocol
