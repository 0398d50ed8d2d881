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
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/sage-x-project/sage/pkg/agent/crypto"
	"github.com/sage-x-project/sage/pkg/agent/crypto/keys"
)

var _ crypto.KeyPair = (*Identity)(nil)

// Identity is an agent's Ed25519 key pair together with its derived public
// encodings. It is immutable after construction and safe for concurrent use.
type Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	publicPEM  string
	agentID    string
}

// Generate creates a new random identity from a SAGE Ed25519 key pair.
func Generate() (*Identity, error) {
	keyPair, err := keys.GenerateEd25519KeyPair()
	if err != nil {
		return nil, protocol.NewSecurityError("identity.generate", err, "failed to generate ed25519 key")
	}
	return FromKeyPair(keyPair)
}

// FromSeed derives the identity for a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, protocol.NewSecurityError("identity.from_seed", nil,
			"expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return newIdentity(ed25519.NewKeyFromSeed(seed)), nil
}

// FromPrivateKey imports a 64-byte Ed25519 private key. The embedded public
// half must match the one recomputed from the seed.
func FromPrivateKey(key []byte) (*Identity, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, protocol.NewSecurityError("identity.from_private_key", nil,
			"expected private key length of %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !derived.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(key[ed25519.SeedSize:])) {
		return nil, protocol.NewSecurityError("identity.from_private_key", nil, "public half does not match seed")
	}
	return newIdentity(derived), nil
}

// FromBytes accepts either a seed or a full private key.
func FromBytes(key []byte) (*Identity, error) {
	switch len(key) {
	case ed25519.SeedSize:
		return FromSeed(key)
	case ed25519.PrivateKeySize:
		return FromPrivateKey(key)
	default:
		return nil, protocol.NewSecurityError("identity.from_bytes", nil,
			"key material must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(key))
	}
}

// FromKeyPair imports an Ed25519 key pair created with the SAGE crypto package.
func FromKeyPair(keyPair crypto.KeyPair) (*Identity, error) {
	if keyPair == nil {
		return nil, protocol.NewSecurityError("identity.from_key_pair", nil, "key pair cannot be nil")
	}
	if keyPair.Type() != crypto.KeyTypeEd25519 {
		return nil, protocol.NewSecurityError("identity.from_key_pair", nil, "unsupported key type %v", keyPair.Type())
	}
	switch priv := keyPair.PrivateKey().(type) {
	case ed25519.PrivateKey:
		return FromPrivateKey(priv)
	case *ed25519.PrivateKey:
		if priv != nil {
			return FromPrivateKey(*priv)
		}
	}
	return nil, protocol.NewSecurityError("identity.from_key_pair", nil,
		"private key of type %T is not ed25519", keyPair.PrivateKey())
}

// FromPKCS8PEM parses a "PRIVATE KEY" PEM block holding an Ed25519 key.
func FromPKCS8PEM(data []byte) (*Identity, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, protocol.NewSecurityError("identity.from_pem", nil, "no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, protocol.NewSecurityError("identity.from_pem", err, "failed to parse PKCS#8 key")
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, protocol.NewSecurityError("identity.from_pem", nil, "PKCS#8 key of type %T is not ed25519", key)
	}
	return FromPrivateKey(priv)
}

func newIdentity(priv ed25519.PrivateKey) *Identity {
	owned := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(owned, priv)
	pub := owned.Public().(ed25519.PublicKey)
	publicPEM := PublicKeyToPEM(pub)

	return &Identity{
		privateKey: owned,
		publicKey:  pub,
		publicPEM:  publicPEM,
		agentID:    AgentIDFromPEM(publicPEM),
	}
}

// SignMessage signs message and returns the standard, padded base64 encoding
// of the signature. Ed25519 is deterministic, so equal inputs give equal output.
func (i *Identity) SignMessage(message []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(i.privateKey, message))
}

// Sign returns the raw 64-byte signature. It satisfies crypto.KeyPair.
func (i *Identity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(i.privateKey, message), nil
}

// Verify checks a raw signature against this identity's public key.
// It satisfies crypto.KeyPair.
func (i *Identity) Verify(message, signature []byte) error {
	if !ed25519.Verify(i.publicKey, message, signature) {
		return protocol.NewSecurityError("identity.verify", nil, "signature does not match")
	}
	return nil
}

// PublicKeyPEM returns the SubjectPublicKeyInfo PEM of the public key.
func (i *Identity) PublicKeyPEM() string {
	return i.publicPEM
}

// AgentID returns the lowercase hex SHA-256 of the trimmed public key PEM.
func (i *Identity) AgentID() string {
	return i.agentID
}

// ID returns the agent id. It satisfies crypto.KeyPair.
func (i *Identity) ID() string {
	return i.agentID
}

// Type satisfies crypto.KeyPair.
func (i *Identity) Type() crypto.KeyType {
	return crypto.KeyTypeEd25519
}

// PublicKey returns a copy of the raw public key as ed25519.PublicKey.
func (i *Identity) PublicKey() stdcrypto.PublicKey {
	return i.RawPublicKey()
}

// PrivateKey returns a copy of the private key as ed25519.PrivateKey.
func (i *Identity) PrivateKey() stdcrypto.PrivateKey {
	out := make(ed25519.PrivateKey, len(i.privateKey))
	copy(out, i.privateKey)
	return out
}

// RawPublicKey returns a copy of the 32 public key bytes.
func (i *Identity) RawPublicKey() ed25519.PublicKey {
	out := make(ed25519.PublicKey, len(i.publicKey))
	copy(out, i.publicKey)
	return out
}

// Seed returns a copy of the 32-byte seed.
func (i *Identity) Seed() []byte {
	return append([]byte(nil), i.privateKey.Seed()...)
}

// PrivateKeyPEM returns the private key as a PKCS#8 "PRIVATE KEY" PEM block.
func (i *Identity) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(i.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal PKCS#8 key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// Verify checks a base64 signature over message against publicKey. It never
// panics: malformed base64, a wrong-length key or a wrong-length signature
// all yield false.
func Verify(message []byte, signatureB64 string, publicKey ed25519.PublicKey) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, sig)
}

// VerifyPEM is Verify with the public key given as PEM.
func VerifyPEM(message []byte, signatureB64 string, publicKeyPEM string) bool {
	pub, err := PEMToRawKey(publicKeyPEM)
	if err != nil {
		return false
	}
	return Verify(message, signatureB64, pub)
}
