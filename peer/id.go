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

// Package peer implements the identity model shared by every protocol: an
// opaque 32-byte ID derived from an Ed25519 public key, totally ordered by
// byte comparison so it can key maps and sorted tables alike.
package peer

import (
	"bytes"

	"p2pcore/crypto"
	"p2pcore/util"
)

// ID is the 32-byte binary representation of a peer's Ed25519 public key.
// It is comparable and usable directly as a map key.
type ID [32]byte

// NewID builds an ID from a public key's raw bytes. Input shorter or
// longer than 32 bytes is left/right aligned via CopyBlock: truncate
// from the left, zero-pad on the left.
func NewID(data []byte) (id ID) {
	buf := make([]byte, 32)
	util.CopyBlock(buf, data)
	copy(id[:], buf)
	return
}

// String returns a Crockford base32 human-readable representation.
func (id ID) String() string {
	return encodeID32(id[:])
}

// Short returns an abbreviated representation suitable for log lines.
func (id ID) Short() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Less gives the total order over IDs required by the data model (byte
// comparison).
func (id ID) Less(other ID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// PublicKey reconstructs the Ed25519 public key an ID was derived from.
func (id ID) PublicKey() *crypto.PublicKey {
	return crypto.NewPublicKey(id[:])
}

// ParseID decodes a Crockford base32 peer ID string.
func ParseID(s string) (ID, error) {
	data, err := decodeID32(s, 32)
	if err != nil {
		return ID{}, err
	}
	return NewID(data), nil
}
