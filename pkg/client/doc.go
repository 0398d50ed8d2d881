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

// Package client provides the TransactionClient of amorce-go: service
// discovery against a Trust Directory and signed transaction submission
// to an Orchestrator.
//
// # Basic Usage
//
//	id, _ := identity.Generate()
//	c, err := client.NewClient(id, client.Config{
//	    DirectoryURL:    "https://directory.example.com",
//	    OrchestratorURL: "https://orchestrator.example.com/",
//	    APIKey:          os.Getenv("AMORCE_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err) // invalid URL: configuration error, nothing was sent
//	}
//
//	services, err := c.Discover(ctx, "weather")
//	resp, err := c.Transact(ctx, services[0], map[string]any{"city": "Paris"},
//	    client.WithPriority(protocol.PriorityHigh))
//
// # Signing
//
// In the flat generation (default) the request body is the canonical JSON of
// {service_id, consumer_agent_id, payload, priority} and X-Agent-Signature
// carries the detached Ed25519 signature of exactly those bytes. In the
// envelope generation the body is a signed Envelope. A client speaks one
// generation only.
//
// # Retries
//
// Both operations go through a transport.Transport. Every attempt of one
// Transact call carries the same X-Amorce-Idempotency key; pass
// WithIdempotencyKey to choose it.
//
// # Error Handling
//
//	resp, err := c.Transact(ctx, contract, payload)
//	switch {
//	case protocol.IsKind(err, protocol.ErrKindAPI):
//	    // rejected by the server; protocol.StatusCode(err) has the status
//	case protocol.IsKind(err, protocol.ErrKindNetwork):
//	    // no usable response after every retry; safe to retry later
//	}
//
// # Thread Safety
//
// Client is safe for concurrent use by multiple goroutines.
package client
