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

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/amorce/amorce-go/pkg/canonical"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/amorce/amorce-go/pkg/transport"
)

type transactOptions struct {
	priority       protocol.Priority
	idempotencyKey string
}

// TransactOption configures a single Transact call
type TransactOption func(*transactOptions)

// WithPriority sets the transaction priority (normal by default)
func WithPriority(priority protocol.Priority) TransactOption {
	return func(o *transactOptions) {
		o.priority = priority
	}
}

// WithIdempotencyKey sets the idempotency key instead of generating one
func WithIdempotencyKey(key string) TransactOption {
	return func(o *transactOptions) {
		o.idempotencyKey = key
	}
}

// Transact signs payload for contract's service and submits it to the
// Orchestrator. The contract and priority are validated before any
// network call.
func (c *Client) Transact(ctx context.Context, contract protocol.ServiceContract, payload map[string]any, opts ...TransactOption) (*protocol.TransactionResponse, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	o := transactOptions{priority: protocol.PriorityNormal}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.priority.Valid() {
		return nil, protocol.NewValidationError("transact", "invalid priority %q", o.priority)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	req := &protocol.TransactionRequest{
		ServiceID:       contract.ServiceID,
		ConsumerAgentID: c.AgentID(),
		Payload:         payload,
		Priority:        o.priority,
	}

	var signed *signer.SignedRequest
	var err error
	if c.cfg.Generation == protocol.GenerationEnvelope {
		signed, err = c.signEnvelope(ctx, req)
	} else {
		signed, err = c.builder.SignRequest(ctx, req, c.identity)
	}
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	signed.ApplyHeaders(header)
	c.applyAPIKey(header)

	resp, err := c.transport.Do(ctx, &transport.Request{
		Op:             "transact",
		Method:         http.MethodPost,
		URL:            c.cfg.OrchestratorURL + protocol.TransactPath,
		Header:         header,
		Body:           signed.Body,
		IdempotencyKey: o.idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	out := decodeTransactionResponse(resp)
	c.logger.Info().
		Str("service_id", contract.ServiceID).
		Str("transaction_id", out.TransactionID).
		Int("status", out.StatusCode).
		Int("attempts", resp.Attempts).
		Msg("Transaction submitted")
	return out, nil
}

// signEnvelope wraps req in a signed envelope. The header signature
// repeats the embedded one.
func (c *Client) signEnvelope(ctx context.Context, req *protocol.TransactionRequest) (*signer.SignedRequest, error) {
	env, err := c.builder.Build(signer.SenderFor(c.identity), map[string]any{
		"service_id":        req.ServiceID,
		"consumer_agent_id": req.ConsumerAgentID,
		"payload":           req.Payload,
	}, req.Priority)
	if err != nil {
		return nil, err
	}
	if err := c.builder.SignEnvelope(ctx, env, c.identity); err != nil {
		return nil, err
	}
	body, err := canonical.Marshal(env)
	if err != nil {
		return nil, protocol.NewSecurityError("transact", err, "failed to encode envelope")
	}
	return &signer.SignedRequest{
		Body:      body,
		Signature: env.Signature,
		AgentID:   c.AgentID(),
	}, nil
}

// decodeTransactionResponse maps an Orchestrator reply. The transaction id
// is transaction_id, then tx_id, then the idempotency key of the call.
func decodeTransactionResponse(resp *transport.Response) *protocol.TransactionResponse {
	out := &protocol.TransactionResponse{
		TransactionID: resp.IdempotencyKey,
		StatusCode:    resp.StatusCode,
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		out.Error = "malformed response body"
		return out
	}

	for _, field := range []string{"transaction_id", "tx_id"} {
		if id, ok := body[field].(string); ok && id != "" {
			out.TransactionID = id
			break
		}
	}

	result := &protocol.TransactionResult{}
	result.Status, _ = body["status"].(string)
	result.Message, _ = body["message"].(string)
	switch data := body["data"].(type) {
	case nil:
	case map[string]any:
		result.Data = data
	default:
		result.Data = map[string]any{"value": data}
	}
	out.Result = result

	if msg, ok := body["error"].(string); ok {
		out.Error = msg
	}
	return out
}
