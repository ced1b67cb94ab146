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
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SharedSecret computes a Diffie-Hellman-like shared secret between
// (prv, peerPub) and the peer's own (peerPrv, pub): both sides land on
// the same curve point, so both derive the same 64-byte value.
func SharedSecret(prv *PrivateKey, peerPub *PublicKey) *HashCode {
	ss := peerPub.key.Mult(prv.key.D).Q.X().Bytes()
	return Hash(ss)
}

// SessionKeys are the two independent keys a QUIC substream handshake
// derives from one shared secret: one for each traffic direction, so
// neither end ever reuses key material between its send and receive
// paths.
type SessionKeys struct {
	Local  [32]byte // key this side uses to key its outbound traffic
	Remote [32]byte // key this side uses to verify/derive inbound traffic
}

// DeriveSessionKeys expands a raw ECDH secret into per-direction session
// keys via HKDF, labeled by which end of the handshake initiated
// (initiator traffic and responder traffic use distinct labels so the
// two directions never collide even though they share one secret).
func DeriveSessionKeys(secret *HashCode, initiator bool) *SessionKeys {
	reader := hkdf.New(sha512.New, secret.Bits, nil, []byte("p2pcore-quic-handshake"))

	var initTraffic, respTraffic [32]byte
	if _, err := io.ReadFull(reader, initTraffic[:]); err != nil {
		panic("crypto: hkdf expand failed: " + err.Error())
	}
	if _, err := io.ReadFull(reader, respTraffic[:]); err != nil {
		panic("crypto: hkdf expand failed: " + err.Error())
	}

	if initiator {
		return &SessionKeys{Local: initTraffic, Remote: respTraffic}
	}
	return &SessionKeys{Local: respTraffic, Remote: initTraffic}
}
