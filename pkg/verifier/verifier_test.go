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
	"testing"

	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedResolver returns the same PEM for every agent id
type fixedResolver struct {
	pem string
	err error
}

func (r *fixedResolver) ResolvePublicKey(ctx context.Context, agentID string) (string, error) {
	return r.pem, r.err
}

func signedFixture(t *testing.T) (*identity.Identity, *signer.SignedRequest) {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)

	signed, err := signer.NewBuilder().SignRequest(context.Background(), &protocol.TransactionRequest{
		ServiceID:       "svc-1",
		ConsumerAgentID: id.AgentID(),
		Payload:         map[string]any{"city": "Paris"},
		Priority:        protocol.PriorityNormal,
	}, id)
	require.NoError(t, err)
	return id, signed
}

func TestStaticResolver(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	r := NewStaticResolver()

	agentID, err := r.Register(id.PublicKeyPEM())
	require.NoError(t, err)
	assert.Equal(t, id.AgentID(), agentID)

	pem, err := r.ResolvePublicKey(context.Background(), agentID)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKeyPEM(), pem)

	_, err = r.ResolvePublicKey(context.Background(), "unknown")
	assert.True(t, errors.Is(err, ErrUnknownAgent))

	_, err = r.Register("not a pem")
	assert.Error(t, err)
}

func TestDefaultVerifier_ValidSignature(t *testing.T) {
	id, signed := signedFixture(t)
	r := NewStaticResolver()
	_, err := r.Register(id.PublicKeyPEM())
	require.NoError(t, err)

	err = NewDefaultVerifier(r).VerifyRequest(context.Background(), id.AgentID(), signed.Body, signed.Signature)

	assert.NoError(t, err)
}

func TestDefaultVerifier_ReformattedBody(t *testing.T) {
	id, signed := signedFixture(t)
	r := NewStaticResolver()
	_, err := r.Register(id.PublicKeyPEM())
	require.NoError(t, err)

	reformatted := []byte(`{
		"service_id": "svc-1",
		"priority": "normal",
		"payload": {"city": "Paris"},
		"consumer_agent_id": "` + id.AgentID() + `"
	}`)

	err = NewDefaultVerifier(r).VerifyRequest(context.Background(), id.AgentID(), reformatted, signed.Signature)

	assert.NoError(t, err)
}

func TestDefaultVerifier_TamperedBody(t *testing.T) {
	id, signed := signedFixture(t)
	r := NewStaticResolver()
	_, err := r.Register(id.PublicKeyPEM())
	require.NoError(t, err)

	tampered := []byte(`{"consumer_agent_id":"` + id.AgentID() + `","payload":{"city":"Rome"},"priority":"normal","service_id":"svc-1"}`)

	err = NewDefaultVerifier(r).VerifyRequest(context.Background(), id.AgentID(), tampered, signed.Signature)

	require.Error(t, err)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))
}

func TestDefaultVerifier_Errors(t *testing.T) {
	ctx := context.Background()
	id, signed := signedFixture(t)
	other, err := identity.Generate()
	require.NoError(t, err)

	v := NewDefaultVerifier(NewStaticResolver())

	err = v.VerifyRequest(ctx, "", signed.Body, signed.Signature)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))

	err = v.VerifyRequest(ctx, id.AgentID(), signed.Body, "")
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))

	err = v.VerifyRequest(ctx, id.AgentID(), signed.Body, signed.Signature)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))
	assert.True(t, errors.Is(err, ErrUnknownAgent))

	// Resolver hands back a key that does not hash to the claimed id
	lying := NewDefaultVerifier(&fixedResolver{pem: other.PublicKeyPEM()})
	err = lying.VerifyRequest(ctx, id.AgentID(), signed.Body, signed.Signature)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))
	assert.Contains(t, err.Error(), "does not match")

	honest := NewDefaultVerifier(&fixedResolver{pem: id.PublicKeyPEM()})
	err = honest.VerifyRequest(ctx, id.AgentID(), []byte("not json"), signed.Signature)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))

	err = NewDefaultVerifier(nil).VerifyRequest(ctx, id.AgentID(), signed.Body, signed.Signature)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindSecurity))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = honest.VerifyRequest(cancelled, id.AgentID(), signed.Body, signed.Signature)
	assert.Contains(t, err.Error(), "context")
}
