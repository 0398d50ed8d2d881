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

package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPEM_RoundTripForManyKeys(t *testing.T) {
	for b := 0; b < 32; b++ {
		key := make(ed25519.PublicKey, ed25519.PublicKeySize)
		for i := range key {
			key[i] = byte(b*7 + i)
		}

		back, err := PEMToRawKey(PublicKeyToPEM(key))

		require.NoError(t, err)
		assert.Equal(t, key, back)
	}
}

func TestPublicKeyToPEM_Layout(t *testing.T) {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)

	out := PublicKeyToPEM(key)

	block, rest := pem.Decode([]byte(out))
	require.NotNil(t, block)
	assert.Empty(t, rest)
	assert.Equal(t, "PUBLIC KEY", block.Type)
	assert.Len(t, block.Bytes, 44)
	assert.Equal(t, Ed25519SPKIPrefix, block.Bytes[:12])
	assert.Equal(t, "MCowBQYDK2VwAyEAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=",
		strings.Split(out, "\n")[1])
}

func TestPEMToRawKey_Errors(t *testing.T) {
	_, err := PEMToRawKey("")
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))

	wrongType := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: make([]byte, 48)}))
	_, err = PEMToRawKey(wrongType)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))

	short := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: make([]byte, 16)}))
	_, err = PEMToRawKey(short)
	assert.True(t, protocol.IsKind(err, protocol.ErrKindValidation))
}

func TestPEMToRawKey_ToleratesSurroundingWhitespace(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	back, err := PEMToRawKey("\n  " + id.PublicKeyPEM() + "\n\n")

	require.NoError(t, err)
	assert.Equal(t, id.RawPublicKey(), back)
}

func TestAgentIDFromPEM(t *testing.T) {
	id, err := FromSeed(testSeed(3))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(strings.TrimSpace(id.PublicKeyPEM())))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, id.AgentID())
	assert.Equal(t, want, AgentIDFromPEM(id.PublicKeyPEM()+"\n"))
	assert.Equal(t, strings.ToLower(want), want)
}
