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

// Package identity manages an agent's Ed25519 signing identity.
//
// An Identity holds the key pair and two derived public encodings:
//
//   - PublicKeyPEM: the raw 32-byte key behind the fixed 12-byte
//     SubjectPublicKeyInfo prefix (see Ed25519SPKIPrefix), base64 encoded and
//     framed as a "PUBLIC KEY" PEM block.
//   - AgentID: the lowercase hex SHA-256 of the trimmed PEM. It is a pure
//     function of the public key, so any party holding the PEM can recompute
//     it without a registry lookup.
//
// # Creating an identity
//
//	id, err := identity.Generate()
//
//	// deterministic, e.g. when loading from storage
//	id, err := identity.FromSeed(seed)
//
//	// through a key provider
//	id, err := identity.Load(ctx, identity.FileProvider{Path: "agent.key"})
//	id, err := identity.Load(ctx, identity.EnvProvider{Var: "AMORCE_PRIVATE_KEY"})
//
// # Signing
//
// SignMessage returns standard padded base64. Ed25519 signatures are
// deterministic, so the same identity and message always produce the same
// string. Verify never panics; malformed input yields false.
//
//	sig := id.SignMessage(msg)
//	ok := identity.VerifyPEM(msg, sig, id.PublicKeyPEM())
//
// Identity also implements the SAGE crypto.KeyPair interface, so it can be
// handed to SAGE components expecting one.
package identity
