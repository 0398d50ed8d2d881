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

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/amorce/amorce-go/pkg/cache"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/rs/zerolog"
)

// HeaderReplay marks a response served from the idempotency store
const HeaderReplay = "X-Amorce-Idempotent-Replay"

// DefaultIdempotencyTTL is how long completed responses are replayed
const DefaultIdempotencyTTL = 24 * time.Hour

type storedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// IdempotencyMiddleware replays the response of a completed POST when the
// same X-Amorce-Idempotency key is seen again. A duplicate arriving while
// the first request is still running waits for it. Responses with a 5xx
// status, or none at all, are not stored, so the client's retry runs the
// handler again.
type IdempotencyMiddleware struct {
	store  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewIdempotencyMiddleware creates the middleware. A nil store keeps
// responses in memory.
func NewIdempotencyMiddleware(store cache.Cache, ttl time.Duration) *IdempotencyMiddleware {
	if store == nil {
		store = cache.NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{
		store:    store,
		ttl:      ttl,
		logger:   zerolog.Nop(),
		inflight: make(map[string]chan struct{}),
	}
}

// SetLogger sets the logger for store failures
func (m *IdempotencyMiddleware) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// Wrap wraps an HTTP handler with idempotent replay
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(protocol.HeaderIdempotency)
		if key == "" || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		// Keys are scoped per agent when the signature was verified first.
		agentID, _ := AgentIDFromContext(r.Context())
		storeKey := "amorce:idempotency:" + agentID + ":" + key

		done, ok := m.acquire(w, r, storeKey)
		if !ok {
			return
		}
		defer done()

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if !rec.wroteHeader || rec.status >= http.StatusInternalServerError {
			return
		}
		data, err := json.Marshal(storedResponse{
			Status: rec.status,
			Header: w.Header().Clone(),
			Body:   rec.body.Bytes(),
		})
		if err == nil {
			err = m.store.Set(r.Context(), storeKey, data, m.ttl)
		}
		if err != nil {
			m.logger.Warn().Err(err).Str("idempotency_key", key).Msg("Failed to store response")
		}
	})
}

// acquire replays a stored response or takes the in-flight slot for
// storeKey. It returns ok=false when the request has been answered.
func (m *IdempotencyMiddleware) acquire(w http.ResponseWriter, r *http.Request, storeKey string) (func(), bool) {
	for {
		if m.replay(w, r, storeKey) {
			return nil, false
		}

		m.mu.Lock()
		wait, busy := m.inflight[storeKey]
		if !busy {
			ch := make(chan struct{})
			m.inflight[storeKey] = ch
			m.mu.Unlock()

			// The first request may have finished between the lookup and the lock.
			if m.replay(w, r, storeKey) {
				m.release(storeKey, ch)
				return nil, false
			}
			return func() { m.release(storeKey, ch) }, true
		}
		m.mu.Unlock()

		select {
		case <-wait:
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
			return nil, false
		}
	}
}

func (m *IdempotencyMiddleware) release(storeKey string, ch chan struct{}) {
	m.mu.Lock()
	delete(m.inflight, storeKey)
	m.mu.Unlock()
	close(ch)
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, r *http.Request, storeKey string) bool {
	data, ok, err := m.store.Get(r.Context(), storeKey)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read idempotency store")
		return false
	}
	if !ok {
		return false
	}
	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		m.logger.Warn().Err(err).Msg("Discarding unreadable stored response")
		return false
	}

	for name, values := range stored.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(HeaderReplay, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return true
}

type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}
