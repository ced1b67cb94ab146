// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019-2022 Bernd Fix  >Y<
//
// gnunet-go is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// gnunet-go is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package crypto

import (
	"errors"

	"github.com/bfix/gospel/crypto/ed25519"
)

// Error codes
var (
	ErrInvalidPrivateKeyData = errors.New("invalid private key data")
)

// PublicKey is an Ed25519 public key. A peer identity (see package peer)
// is the raw bytes of this key; no separate certificate handling is done
// here (that stays with the transport's TLS/QUIC handshake, out of scope).
type PublicKey struct {
	key *ed25519.PublicKey
}

// NewPublicKey wraps the binary representation of a public key. The value
// is not checked for validity.
func NewPublicKey(data []byte) *PublicKey {
	return &PublicKey{key: ed25519.NewPublicKeyFromBytes(data)}
}

// Bytes returns the binary representation of a public key.
func (pub *PublicKey) Bytes() []byte {
	return pub.key.Bytes()
}

// Verify checks a signature over a message.
func (pub *PublicKey) Verify(msg []byte, sig *Signature) (bool, error) {
	return pub.key.EdVerify(msg, sig.sig)
}

// PrivateKey is an Ed25519 private (signing) key.
type PrivateKey struct {
	key *ed25519.PrivateKey
}

// PrivateKeyFromSeed returns a private key for a given 32-byte seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != 32 {
		return nil, ErrInvalidPrivateKeyData
	}
	return &PrivateKey{key: ed25519.NewPrivateKeyFromSeed(seed)}, nil
}

// Public returns the public key belonging to a private key.
func (prv *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: prv.key.Public()}
}

// Sign creates a signature over a message.
func (prv *PrivateKey) Sign(msg []byte) (*Signature, error) {
	sig, err := prv.key.EdSign(msg)
	if err != nil {
		return nil, err
	}
	return &Signature{sig: sig}, nil
}

// Signature wraps a raw Ed25519 signature.
type Signature struct {
	sig *ed25519.EdSignature
}

// Bytes returns the binary representation of a signature.
func (s *Signature) Bytes() []byte {
	return s.sig.Bytes()
}

// NewSignatureFromBytes reconstructs a signature from its wire form.
func NewSignatureFromBytes(data []byte) (*Signature, error) {
	sig, err := ed25519.NewEdSignatureFromBytes(data)
	if err != nil {
		return nil, err
	}
	return &Signature{sig: sig}, nil
}
