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

package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"p2pcore/peer"
)

// ErrInvalidProtocol is returned when a multiaddress does not match the
// QUIC grammar: (Ip4|Ip6, Udp(port), QuicV1, P2p(multihash)?).
var ErrInvalidProtocol = errors.New("maddr: invalid protocol sequence")

// ErrPeerIDMissing is returned by ParseQuicAddr callers that require the
// trailing /p2p/<id> component when it was omitted.
var ErrPeerIDMissing = errors.New("maddr: p2p component missing")

// QuicAddr is a parsed /ip4|ip6/.../udp/<port>/quic-v1[/p2p/<id>] address.
type QuicAddr struct {
	IP       net.IP
	IsIP6    bool
	Port     uint16
	PeerID   peer.ID
	HasPeer  bool
}

// ParseQuicAddr parses a multiaddress string of the form
//
//	/ip4/1.2.3.4/udp/4001/quic-v1
//	/ip6/::1/udp/4001/quic-v1/p2p/<base32-peer-id>
//
// This is the only multiaddress grammar the module supports: no other
// transport protocols are modeled.
func ParseQuicAddr(s string) (*QuicAddr, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 4 {
		return nil, ErrInvalidProtocol
	}

	var a QuicAddr
	switch parts[0] {
	case "ip4":
		a.IsIP6 = false
	case "ip6":
		a.IsIP6 = true
	default:
		return nil, ErrInvalidProtocol
	}
	ip := net.ParseIP(parts[1])
	if ip == nil {
		return nil, ErrInvalidProtocol
	}
	a.IP = ip

	if parts[2] != "udp" {
		return nil, ErrInvalidProtocol
	}
	port, err := strconv.ParseUint(parts[3], 10, 16)
	if err != nil {
		return nil, ErrInvalidProtocol
	}
	a.Port = uint16(port)

	if len(parts) == 4 {
		return nil, ErrInvalidProtocol
	}
	if parts[4] != "quic-v1" {
		return nil, ErrInvalidProtocol
	}

	switch len(parts) {
	case 5:
		return &a, nil
	case 7:
		if parts[5] != "p2p" {
			return nil, ErrInvalidProtocol
		}
		id, err := peer.ParseID(parts[6])
		if err != nil {
			return nil, fmt.Errorf("maddr: %w", err)
		}
		a.PeerID = id
		a.HasPeer = true
		return &a, nil
	default:
		return nil, ErrInvalidProtocol
	}
}

// RequirePeerID parses a QuicAddr and demands the /p2p component, for
// call sites (like Dial) that need to know the peer they are reaching.
func RequirePeerID(s string) (*QuicAddr, error) {
	a, err := ParseQuicAddr(s)
	if err != nil {
		return nil, err
	}
	if !a.HasPeer {
		return nil, ErrPeerIDMissing
	}
	return a, nil
}

// String renders the address back into multiaddress form.
func (a *QuicAddr) String() string {
	proto := "ip4"
	if a.IsIP6 {
		proto = "ip6"
	}
	base := fmt.Sprintf("/%s/%s/udp/%d/quic-v1", proto, a.IP.String(), a.Port)
	if a.HasPeer {
		return base + "/p2p/" + a.PeerID.String()
	}
	return base
}
