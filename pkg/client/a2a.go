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
	"context"
	"encoding/json"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/amorce/amorce-go/pkg/protocol"
)

// ContractFromAgentCard describes an A2A agent as a ServiceContract.
// The card name becomes the service id.
func ContractFromAgentCard(card *a2a.AgentCard, serviceType string) (protocol.ServiceContract, error) {
	if card == nil {
		return protocol.ServiceContract{}, protocol.NewConfigurationError("contract", "agent card cannot be nil")
	}
	contract := protocol.ServiceContract{
		ServiceID:   strings.TrimSpace(card.Name),
		ServiceType: serviceType,
		Extra:       map[string]any{},
	}
	if card.Description != "" {
		contract.Extra["description"] = card.Description
	}
	if card.URL != "" {
		contract.Extra["url"] = card.URL
	}
	if card.PreferredTransport != "" {
		contract.Extra["preferred_transport"] = string(card.PreferredTransport)
	}
	if len(contract.Extra) == 0 {
		contract.Extra = nil
	}
	if err := contract.Validate(); err != nil {
		return protocol.ServiceContract{}, err
	}
	return contract, nil
}

// MessagePayload converts an A2A message into a transaction payload.
// The message is kept in its A2A JSON form under "message"; the text of
// its text parts is joined under "text".
func MessagePayload(msg *a2a.Message) (map[string]any, error) {
	if msg == nil {
		return nil, protocol.NewValidationError("transact", "message cannot be nil")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, protocol.NewValidationError("transact", "failed to encode message: %v", err)
	}
	var encoded map[string]any
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, protocol.NewValidationError("transact", "failed to decode message: %v", err)
	}

	var texts []string
	for _, part := range msg.Parts {
		if p, ok := part.(*a2a.TextPart); ok {
			texts = append(texts, p.Text)
		}
	}

	payload := map[string]any{"message": encoded}
	if len(texts) > 0 {
		payload["text"] = strings.Join(texts, "\n")
	}
	return payload, nil
}

// TransactMessage submits an A2A message as the payload of a transaction
func (c *Client) TransactMessage(ctx context.Context, contract protocol.ServiceContract, msg *a2a.Message, opts ...TransactOption) (*protocol.TransactionResponse, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	payload, err := MessagePayload(msg)
	if err != nil {
		return nil, err
	}
	return c.Transact(ctx, contract, payload, opts...)
}
