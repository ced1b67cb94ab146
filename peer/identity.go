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

package peer

import (
	"encoding/base64"
	"errors"

	"p2pcore/crypto"
)

// ErrNoPrivateKey is returned when a signing operation is attempted on a
// peer that only has a public key (a remote peer record).
var ErrNoPrivateKey = errors.New("peer: no private key")

// Identity is a local node: it owns the long-term Ed25519 keypair whose
// public half is its ID, so it can sign outgoing handshake and request
// material. A remote peer is represented by a bare ID; nothing in this
// package owns key material for peers other than the local node.
type Identity struct {
	prv *crypto.PrivateKey
	pub *crypto.PublicKey
	id  ID
}

// NewIdentity generates a fresh random identity.
func NewIdentity() (*Identity, error) {
	seed := crypto.RandomSeed(32)
	return NewIdentityFromSeed(seed)
}

// NewIdentityFromSeed derives an identity from a 32-byte seed, so a node's
// identity can be kept stable across restarts by persisting the seed.
func NewIdentityFromSeed(seed []byte) (*Identity, error) {
	prv, err := crypto.PrivateKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	pub := prv.Public()
	return &Identity{
		prv: prv,
		pub: pub,
		id:  NewID(pub.Bytes()),
	}, nil
}

// NewIdentityFromBase64Seed follows the node-configuration convention of
// storing the private seed as base64 in config files.
func NewIdentityFromBase64Seed(seed string) (*Identity, error) {
	data, err := base64.StdEncoding.DecodeString(seed)
	if err != nil {
		return nil, err
	}
	return NewIdentityFromSeed(data)
}

// ID returns the peer ID (public key) of this identity.
func (n *Identity) ID() ID {
	return n.id
}

// Sign signs a message with the long-term private key.
func (n *Identity) Sign(msg []byte) (*crypto.Signature, error) {
	if n.prv == nil {
		return nil, ErrNoPrivateKey
	}
	return n.prv.Sign(msg)
}

// Verify checks a signature against this identity's public key.
func (n *Identity) Verify(msg []byte, sig *crypto.Signature) (bool, error) {
	return n.pub.Verify(msg, sig)
}

// SharedSecret computes the ECDH-style secret this identity shares with
// remote, for handshake key derivation (see crypto.DeriveSessionKeys).
// Both peers land on the same value: remote computes it the same way
// using its own private key and this identity's public ID.
func (n *Identity) SharedSecret(remote ID) (*crypto.HashCode, error) {
	if n.prv == nil {
		return nil, ErrNoPrivateKey
	}
	return crypto.SharedSecret(n.prv, remote.PublicKey()), nil
}
