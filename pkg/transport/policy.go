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

package transport

import (
	"math/rand/v2"
	"net/http"
	"time"
)

// Defaults of the retry policy.
const (
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 1000 * time.Millisecond
	DefaultMaxDelay       = 10000 * time.Millisecond
	DefaultAttemptTimeout = 30 * time.Second
)

// Policy bounds the retries of one logical operation.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay and MaxDelay shape the exponential backoff:
	// min(MaxDelay, BaseDelay * 2^attempt), before jitter.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// AttemptTimeout bounds a single HTTP attempt, including reading the
	// response body. Zero disables the per-attempt timeout.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns 3 retries, 1s base delay, 10s cap and a 30s attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		BaseDelay:      DefaultBaseDelay,
		MaxDelay:       DefaultMaxDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Backoff returns the delay before retry number attempt (0-based), before jitter.
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = DefaultMaxDelay
	}
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}

// Jitter scales d by a uniform factor in [0.5, 1.0), so concurrent callers
// spread their retries without ever exceeding the capped delay.
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int64N(int64(d/2)+1))
}

// Outcome is the classification of one attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Classify maps an HTTP status to an outcome. 429, 503 and 504 are always
// retried; 500 and 502 only on the write path (POST), where the
// idempotency key makes a repeat safe.
func Classify(method string, statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeSuccess
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusServiceUnavailable,
		statusCode == http.StatusGatewayTimeout:
		return OutcomeRetryable
	case statusCode == http.StatusInternalServerError,
		statusCode == http.StatusBadGateway:
		if method == http.MethodPost {
			return OutcomeRetryable
		}
		return OutcomeFatal
	default:
		return OutcomeFatal
	}
}
