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

package verifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/amorce/amorce-go/pkg/canonical"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedEnvelope(t *testing.T, payload map[string]any) (*identity.Identity, *protocol.Envelope, []byte) {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	b := signer.NewBuilder()
	env, err := b.Build(signer.SenderFor(id), payload, protocol.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, b.SignEnvelope(context.Background(), env, id))
	body, err := canonical.Marshal(env)
	require.NoError(t, err)
	return id, env, body
}

func TestEnvelopeVerifier_Valid(t *testing.T) {
	id, env, body := signedEnvelope(t, map[string]any{"big": json.Number("9007199254740993"), "ok": true})
	r := NewStaticResolver()
	_, err := r.Register(id.PublicKeyPEM())
	require.NoError(t, err)

	err = NewEnvelopeVerifier(r).VerifyRequest(context.Background(), id.AgentID(), body, env.Signature)

	assert.NoError(t, err)
}

func TestEnvelopeVerifier_NoResolver(t *testing.T) {
	id, env, body := signedEnvelope(t, map[string]any{"q": "x"})

	err := NewEnvelopeVerifier(nil).VerifyRequest(context.Background(), id.AgentID(), body, env.Signature)

	assert.NoError(t, err)
}

func TestEnvelopeVerifier_TamperedPayload(t *testing.T) {
	id, env, _ := signedEnvelope(t, map[string]any{"amount": 10})
	env.Payload["amount"] = 11
	body, err := canonical.Marshal(env)
	require.NoError(t, err)

	err = NewEnvelopeVerifier(nil).VerifyRequest(context.Background(), id.AgentID(), body, env.Signature)

	require.Error(t, err)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))
}

func TestEnvelopeVerifier_HeaderMismatch(t *testing.T) {
	id, _, body := signedEnvelope(t, map[string]any{"q": "x"})

	err := NewEnvelopeVerifier(nil).VerifyRequest(context.Background(), id.AgentID(), body, "AAAA")

	require.Error(t, err)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))
}

func TestEnvelopeVerifier_WrongAgent(t *testing.T) {
	_, env, body := signedEnvelope(t, map[string]any{"q": "x"})
	other, err := identity.Generate()
	require.NoError(t, err)

	err = NewEnvelopeVerifier(nil).VerifyRequest(context.Background(), other.AgentID(), body, env.Signature)

	require.Error(t, err)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))
}

func TestEnvelopeVerifier_UnregisteredKey(t *testing.T) {
	id, env, body := signedEnvelope(t, map[string]any{"q": "x"})

	err := NewEnvelopeVerifier(NewStaticResolver()).VerifyRequest(context.Background(), id.AgentID(), body, env.Signature)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestEnvelopeVerifier_Unsigned(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	env, err := signer.NewBuilder().Build(signer.SenderFor(id), nil, protocol.PriorityNormal)
	require.NoError(t, err)
	body, err := canonical.Marshal(env)
	require.NoError(t, err)

	err = NewEnvelopeVerifier(nil).VerifyRequest(context.Background(), id.AgentID(), body, "")

	require.Error(t, err)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))
}

func TestEnvelopeVerifier_NotJSON(t *testing.T) {
	err := NewEnvelopeVerifier(nil).VerifyRequest(context.Background(), "agent", []byte("nope"), "sig")

	require.Error(t, err)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))
}

func TestForGeneration(t *testing.T) {
	_, ok := ForGeneration(protocol.GenerationEnvelope, nil).(*EnvelopeVerifier)
	assert.True(t, ok)
	_, ok = ForGeneration(protocol.GenerationFlat, nil).(*DefaultVerifier)
	assert.True(t, ok)
}
