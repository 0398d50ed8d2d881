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

// Package transport executes HTTP requests against Amorce endpoints with
// bounded, jittered retries.
//
// A Transport classifies every response into one of three outcomes:
//
//   - 2xx is a success and is returned immediately
//   - 429, 503 and 504 are always retried; 500 and 502 are retried for POST only
//   - every other status is fatal and returned as an API error without retrying
//
// Failures below HTTP (connection refused, per-attempt timeout) are retried.
// The delay before retry n is min(MaxDelay, BaseDelay*2^n) scaled by a random
// factor in [0.5, 1.0). When the retry budget is exhausted, Do returns a
// network error carrying the last observed status and body.
//
// POST requests carry an X-Amorce-Idempotency key that is identical across
// every attempt of the same logical call.
//
// # Usage
//
//	tr := transport.New(
//	    transport.WithLogger(logger),
//	    transport.WithPolicy(transport.DefaultPolicy()),
//	)
//	resp, err := tr.Do(ctx, &transport.Request{
//	    Op:     "transact",
//	    Method: http.MethodPost,
//	    URL:    orchestratorURL + protocol.TransactPath,
//	    Body:   body,
//	})
package transport
