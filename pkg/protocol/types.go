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

package protocol

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// Wire constants shared by the client and the receiving side.
const (
	HeaderSignature   = "X-Agent-Signature"
	HeaderIdempotency = "X-Amorce-Idempotency"
	HeaderAgentID     = "X-Amorce-Agent-ID"
	HeaderAPIKey      = "X-API-Key"
	HeaderATPKey      = "X-ATP-Key"

	SearchPath   = "/api/v1/services/search"
	TransactPath = "/v1/a2a/transact"

	// EnvelopeVersion is stamped on envelopes of the embedded-signature generation.
	EnvelopeVersion = "0.1.0"

	// Algorithm is the only signing algorithm the protocol defines.
	Algorithm = "ed25519"
)

// Priority is the scheduling hint attached to a transaction.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority validates s. The empty string maps to PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", NewValidationError("priority", "invalid priority %q (want normal, high or critical)", s)
	}
	return p, nil
}

// Generation selects how a request is signed on the wire. A deployment
// targets exactly one generation.
type Generation string

const (
	// GenerationFlat signs the canonical request body and sends the
	// signature in the X-Agent-Signature header.
	GenerationFlat Generation = "flat"
	// GenerationEnvelope embeds the signature in a signed Envelope.
	GenerationEnvelope Generation = "envelope"
)

// ParseGeneration validates s. The empty string maps to GenerationFlat.
func ParseGeneration(s string) (Generation, error) {
	switch Generation(s) {
	case "":
		return GenerationFlat, nil
	case GenerationFlat, GenerationEnvelope:
		return Generation(s), nil
	}
	return "", NewConfigurationError("generation", "unknown protocol generation %q", s)
}

// TransactionRequest is the flat request body. Its canonical bytes are
// exactly what X-Agent-Signature signs, so no field may be added here
// without changing every verifier.
type TransactionRequest struct {
	ServiceID       string         `json:"service_id"`
	ConsumerAgentID string         `json:"consumer_agent_id"`
	Payload         map[string]any `json:"payload"`
	Priority        Priority       `json:"priority"`
}

// TransactionResult is the orchestrator's report of what happened.
type TransactionResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// TransactionResponse is what Transact returns to the caller.
type TransactionResponse struct {
	TransactionID string             `json:"transaction_id"`
	StatusCode    int                `json:"status_code"`
	Result        *TransactionResult `json:"result,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// IsSuccess reports a 2xx status.
func (r *TransactionResponse) IsSuccess() bool {
	return IsSuccessStatus(r.StatusCode)
}

// IsRetryable reports a status the orchestrator may accept on a later try.
func (r *TransactionResponse) IsRetryable() bool {
	return IsRetryableStatus(r.StatusCode)
}

// IsSuccessStatus reports 200 <= code < 300.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// IsRetryableStatus reports code ∈ {429, 500, 502, 503, 504}.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ServiceContract describes a service published in the Trust Directory.
// Fields the SDK does not know about are kept in Extra and written back
// on marshal.
type ServiceContract struct {
	ServiceID       string
	ProviderAgentID string
	ServiceType     string
	Extra           map[string]any
}

const (
	contractServiceID       = "service_id"
	contractProviderAgentID = "provider_agent_id"
	contractServiceType     = "service_type"
)

// Validate checks the fields required before any network call.
func (c *ServiceContract) Validate() error {
	if c.ServiceID == "" {
		return NewConfigurationError("contract", "service_id is required")
	}
	return nil
}

func (c ServiceContract) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		m[k] = v
	}
	m[contractServiceID] = c.ServiceID
	if c.ProviderAgentID != "" {
		m[contractProviderAgentID] = c.ProviderAgentID
	}
	if c.ServiceType != "" {
		m[contractServiceType] = c.ServiceType
	}
	return json.Marshal(m)
}

func (c *ServiceContract) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "failed to decode service contract")
	}
	*c = ServiceContract{}
	c.ServiceID, _ = m[contractServiceID].(string)
	c.ProviderAgentID, _ = m[contractProviderAgentID].(string)
	c.ServiceType, _ = m[contractServiceType].(string)
	delete(m, contractServiceID)
	delete(m, contractProviderAgentID)
	delete(m, contractServiceType)
	if len(m) > 0 {
		c.Extra = m
	}
	return nil
}

// Sender identifies the signer of an envelope.
type Sender struct {
	PublicKeyPEM string `json:"public_key"`
	AgentID      string `json:"agent_id,omitempty"`
}

// Settlement is the fee block carried by every envelope.
type Settlement struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	FacilitationFee float64 `json:"facilitation_fee"`
}

// Envelope is a signed container for one message of the embedded-signature
// generation. Signature covers the canonical bytes of every other field.
type Envelope struct {
	ProtocolVersion string         `json:"protocol_version"`
	ID              string         `json:"id"`
	Priority        Priority       `json:"priority"`
	Timestamp       float64        `json:"timestamp"`
	Sender          Sender         `json:"sender"`
	Payload         map[string]any `json:"payload"`
	Settlement      Settlement     `json:"settlement"`
	Signature       string         `json:"signature,omitempty"`
}

// IsSigned reports whether the signature field has been bound.
func (e *Envelope) IsSigned() bool {
	return e.Signature != ""
}
