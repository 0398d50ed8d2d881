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

	"github.com/amorce/amorce-go/pkg/protocol"
)

// Ed25519SPKIPrefix is the DER header of an Ed25519 SubjectPublicKeyInfo:
// SEQUENCE { SEQUENCE { OID 1.3.101.112 } BIT STRING (33 bytes, 0 unused) }.
// Every implementation must emit exactly these 12 bytes before the raw key.
var Ed25519SPKIPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}

const pemPublicKeyType = "PUBLIC KEY"

// PublicKeyToPEM wraps a raw 32-byte Ed25519 key in a PUBLIC KEY PEM block.
func PublicKeyToPEM(publicKey ed25519.PublicKey) string {
	der := make([]byte, 0, len(Ed25519SPKIPrefix)+len(publicKey))
	der = append(der, Ed25519SPKIPrefix...)
	der = append(der, publicKey...)
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPublicKeyType, Bytes: der}))
}

// PEMToRawKey recovers the raw public key from a PUBLIC KEY PEM block by
// keeping the last 32 bytes of the DER payload.
func PEMToRawKey(publicKeyPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(publicKeyPEM)))
	if block == nil {
		return nil, protocol.NewValidationError("identity.pem", "no PEM block found")
	}
	if block.Type != pemPublicKeyType {
		return nil, protocol.NewValidationError("identity.pem", "unexpected PEM type %q", block.Type)
	}
	if len(block.Bytes) < ed25519.PublicKeySize {
		return nil, protocol.NewValidationError("identity.pem",
			"PEM payload is %d bytes, need at least %d", len(block.Bytes), ed25519.PublicKeySize)
	}
	raw := block.Bytes[len(block.Bytes)-ed25519.PublicKeySize:]
	return append(ed25519.PublicKey(nil), raw...), nil
}

// AgentIDFromPEM derives the agent id: hex(SHA-256(trimmed PEM)).
func AgentIDFromPEM(publicKeyPEM string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(publicKeyPEM)))
	return hex.EncodeToString(sum[:])
}
