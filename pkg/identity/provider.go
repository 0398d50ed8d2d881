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
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/amorce/amorce-go/pkg/protocol"
)

// KeyProvider sources private key material. Implementations return either a
// 32-byte seed or a 64-byte private key, and fail with a security error.
type KeyProvider interface {
	FetchPrivateKey(ctx context.Context) ([]byte, error)
}

// Load builds an identity from the key material of provider.
func Load(ctx context.Context, provider KeyProvider) (*Identity, error) {
	if provider == nil {
		return nil, protocol.NewSecurityError("identity.load", nil, "key provider cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, protocol.NewSecurityError("identity.load", err, "context error")
	}
	key, err := provider.FetchPrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	return FromBytes(key)
}

// StaticProvider serves key material held in memory.
type StaticProvider struct {
	Key []byte
}

// FetchPrivateKey returns a copy of the configured key.
func (p StaticProvider) FetchPrivateKey(ctx context.Context) ([]byte, error) {
	if len(p.Key) == 0 {
		return nil, protocol.NewSecurityError("identity.static", nil, "no key material configured")
	}
	return append([]byte(nil), p.Key...), nil
}

// EnvProvider reads key material from an environment variable. The value may
// be a hex seed (optionally 0x-prefixed), base64 of a seed or private key, or
// a PKCS#8 PEM block.
type EnvProvider struct {
	Var string
}

// FetchPrivateKey reads and decodes the variable on every call.
func (p EnvProvider) FetchPrivateKey(ctx context.Context) ([]byte, error) {
	if p.Var == "" {
		return nil, protocol.NewSecurityError("identity.env", nil, "environment variable name is empty")
	}
	value, ok := os.LookupEnv(p.Var)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, protocol.NewSecurityError("identity.env", nil, "environment variable %s is not set", p.Var)
	}
	key, err := DecodeKeyMaterial([]byte(value))
	if err != nil {
		return nil, protocol.NewSecurityError("identity.env", err, "invalid key material in %s", p.Var)
	}
	return key, nil
}

// FileProvider reads key material from a file, in any format EnvProvider accepts.
type FileProvider struct {
	Path string
}

// FetchPrivateKey reads and decodes the file on every call.
func (p FileProvider) FetchPrivateKey(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, protocol.NewSecurityError("identity.file", err, "failed to read key file %s", p.Path)
	}
	key, err := DecodeKeyMaterial(data)
	if err != nil {
		return nil, protocol.NewSecurityError("identity.file", err, "invalid key material in %s", p.Path)
	}
	return key, nil
}

// DecodeKeyMaterial recognizes PKCS#8 PEM, hex and base64 encodings of an
// Ed25519 seed or private key.
func DecodeKeyMaterial(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, protocol.NewSecurityError("identity.decode", nil, "key material is empty")
	}

	if bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		id, err := FromPKCS8PEM(trimmed)
		if err != nil {
			return nil, err
		}
		return id.Seed(), nil
	}

	text := strings.TrimPrefix(string(trimmed), "0x")
	if raw, err := hex.DecodeString(text); err == nil && validKeyLength(len(raw)) {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(string(trimmed)); err == nil && validKeyLength(len(raw)) {
		return raw, nil
	}
	return nil, protocol.NewSecurityError("identity.decode", nil,
		"expected hex or base64 encoding of %d or %d bytes, or a PKCS#8 PEM block", ed25519.SeedSize, ed25519.PrivateKeySize)
}

func validKeyLength(n int) bool {
	return n == ed25519.SeedSize || n == ed25519.PrivateKeySize
}

// WriteSeedFile stores the identity's seed as hex in path with mode 0600.
// An existing file is only replaced when overwrite is set.
func WriteSeedFile(path string, id *Identity, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return protocol.NewSecurityError("identity.write", err, "failed to create key directory")
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return protocol.NewSecurityError("identity.write", err, "failed to open key file %s", path)
	}
	defer file.Close()

	if _, err := file.WriteString(hex.EncodeToString(id.Seed()) + "\n"); err != nil {
		return protocol.NewSecurityError("identity.write", err, "failed to write key file %s", path)
	}
	if err := file.Close(); err != nil {
		return protocol.NewSecurityError("identity.write", err, "failed to close key file %s", path)
	}
	return nil
}
