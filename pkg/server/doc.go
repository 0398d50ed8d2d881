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

// Package server provides net/http middleware for services that receive
// Amorce transactions.
//
// # Basic Usage
//
//	resolver := verifier.NewStaticResolver()
//	resolver.Register(consumerPEM)
//
//	auth := server.NewSignatureMiddleware(resolver)
//	idem := server.NewIdempotencyMiddleware(nil, 0)
//
//	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    agentID, _ := server.AgentIDFromContext(r.Context())
//	    fmt.Fprintf(w, `{"status":"success","agent":%q}`, agentID)
//	})
//
//	http.Handle("/v1/a2a/transact", auth.Wrap(idem.Wrap(handler)))
//
// Put the signature middleware outside the idempotency middleware so
// replayed responses are keyed per verified agent.
//
// # Signature Verification
//
// SignatureMiddleware reads X-Amorce-Agent-ID and X-Agent-Signature, hands
// the body to a verifier.RequestVerifier and, on success, stores the agent
// id in the request context. Unsigned or invalid requests get 401 unless
// SetOptional(true) lets unsigned ones through. OPTIONS requests are never
// checked.
//
// # Idempotent Replay
//
// IdempotencyMiddleware keeps completed responses in a cache.Cache, so a
// Redis-backed cache shares replays between replicas. Replayed responses
// carry X-Amorce-Idempotent-Replay: true.
package server
