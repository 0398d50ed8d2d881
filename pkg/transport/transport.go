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
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// maxResponseBytes bounds how much of a response body is kept.
const maxResponseBytes = 4 << 20

// Request is one logical HTTP operation.
type Request struct {
	// Op names the operation in errors and logs (e.g. "discover", "transact")
	Op string

	Method string
	URL    string
	Header http.Header
	Body   []byte

	// IdempotencyKey is sent on every attempt of a POST. One is generated
	// when empty.
	IdempotencyKey string
}

// Response is the outcome of the successful attempt.
type Response struct {
	StatusCode     int
	Header         http.Header
	Body           []byte
	Attempts       int
	IdempotencyKey string
}

// RetryEvent describes a failed attempt.
type RetryEvent struct {
	Op      string
	Method  string
	URL     string
	Attempt int

	// StatusCode is 0 when the attempt failed below HTTP.
	StatusCode int
	Err        error

	// Delay is the backoff before jitter and Wait the actual pause. Both are
	// zero when Final is set.
	Delay time.Duration
	Wait  time.Duration
	Final bool
}

// Reason is a short human readable cause of the failure.
func (e RetryEvent) Reason() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

// Transport executes HTTP operations with bounded, jittered retries.
// It holds no per-call state and is safe for concurrent use.
type Transport struct {
	httpClient *http.Client
	policy     Policy
	logger     zerolog.Logger
	userAgent  string
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func(time.Duration) time.Duration
	observer   func(RetryEvent)
}

// Option configures a Transport
type Option func(*Transport)

// WithHTTPClient sets the HTTP client (http.DefaultClient when nil)
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithPolicy sets the retry policy
func WithPolicy(policy Policy) Option {
	return func(t *Transport) {
		t.policy = policy
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithUserAgent sets the User-Agent header of every attempt
func WithUserAgent(userAgent string) Option {
	return func(t *Transport) {
		t.userAgent = userAgent
	}
}

// WithSleep replaces the backoff sleep, mainly for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Transport) {
		t.sleep = sleep
	}
}

// WithJitter replaces the jitter function
func WithJitter(jitter func(time.Duration) time.Duration) Option {
	return func(t *Transport) {
		t.jitter = jitter
	}
}

// WithRetryObserver registers a hook called for every failed attempt
func WithRetryObserver(observer func(RetryEvent)) Option {
	return func(t *Transport) {
		t.observer = observer
	}
}

// New creates a Transport with DefaultPolicy
func New(opts ...Option) *Transport {
	t := &Transport{
		httpClient: http.DefaultClient,
		policy:     DefaultPolicy(),
		logger:     zerolog.Nop(),
		sleep:      sleepContext,
		jitter:     Jitter,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the retry policy in use
func (t *Transport) Policy() Policy {
	return t.policy
}

// Do runs req until it succeeds, fails fatally or the retry budget is spent.
// Attempts are strictly sequential. Fatal statuses return an API error
// without further attempts; exhausting the budget returns a network error.
// Cancelling ctx aborts the current attempt or backoff.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, protocol.NewValidationError("transport", "request cannot be nil")
	}
	op := req.Op
	if op == "" {
		op = "transport"
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if _, err := http.NewRequest(method, req.URL, nil); err != nil {
		return nil, protocol.NewConfigurationError(op, "invalid request %s %s: %v", method, req.URL, err)
	}

	key := req.IdempotencyKey
	if method == http.MethodPost && key == "" {
		key = uuid.NewString()
	}

	maxAttempts := t.policy.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastStatus int
		lastBody   []byte
		lastErr    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, header, body, err := t.attempt(ctx, method, req, key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, protocol.NewNetworkError(op, attempt, 0, nil, ctxErr)
			}
			lastStatus, lastBody, lastErr = 0, nil, err
		} else {
			switch Classify(method, status) {
			case OutcomeSuccess:
				t.logger.Debug().
					Str("op", op).
					Str("method", method).
					Str("url", req.URL).
					Int("status", status).
					Int("attempts", attempt).
					Msg("Request succeeded")
				return &Response{
					StatusCode:     status,
					Header:         header,
					Body:           body,
					Attempts:       attempt,
					IdempotencyKey: key,
				}, nil
			case OutcomeFatal:
				t.logger.Error().
					Str("op", op).
					Str("method", method).
					Str("url", req.URL).
					Int("status", status).
					Int("attempt", attempt).
					Msg("Request rejected")
				return nil, protocol.NewAPIError(op, status, body, attempt)
			}
			lastStatus, lastBody, lastErr = status, body, nil
		}

		event := RetryEvent{
			Op:         op,
			Method:     method,
			URL:        req.URL,
			Attempt:    attempt,
			StatusCode: lastStatus,
			Err:        lastErr,
			Final:      attempt == maxAttempts,
		}
		if !event.Final {
			event.Delay = t.policy.Backoff(attempt - 1)
			event.Wait = t.jitter(event.Delay)
		}
		t.report(event)

		if event.Final {
			break
		}
		if err := t.sleep(ctx, event.Wait); err != nil {
			return nil, protocol.NewNetworkError(op, attempt, lastStatus, lastBody, err)
		}
	}

	t.logger.Error().
		Str("op", op).
		Str("method", method).
		Str("url", req.URL).
		Int("attempts", maxAttempts).
		Int("last_status", lastStatus).
		Msg("Retries exhausted")
	return nil, protocol.NewNetworkError(op, maxAttempts, lastStatus, lastBody, lastErr)
}

func (t *Transport) report(event RetryEvent) {
	logEvent := t.logger.Warn()
	if event.Final {
		logEvent = t.logger.Error()
	}
	logEvent.
		Str("op", event.Op).
		Str("method", event.Method).
		Str("url", event.URL).
		Int("attempt", event.Attempt).
		Int("status", event.StatusCode).
		Str("reason", event.Reason()).
		Dur("delay", event.Wait).
		Msg("Attempt failed")

	if t.observer != nil {
		t.observer(event)
	}
}

// attempt performs one HTTP exchange under the per-attempt timeout.
func (t *Transport) attempt(ctx context.Context, method string, req *Request, key string) (int, http.Header, []byte, error) {
	attemptCtx := ctx
	if t.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, t.policy.AttemptTimeout)
		defer cancel()
	}

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, req.URL, body)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, "failed to create HTTP request")
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if key != "" {
		httpReq.Header.Set(protocol.HeaderIdempotency, key)
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, "failed to read response body")
	}
	return resp.StatusCode, resp.Header, data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
