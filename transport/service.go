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
	"context"

	"p2pcore/peer"
)

// ConnectionID is a transport-assigned handle for one established
// connection to a remote peer. A peer may have more than one live
// connection at a time (e.g. during connection migration).
type ConnectionID uint64

// SubstreamID is a transport-assigned handle for one open substream.
type SubstreamID uint64

// Direction records which side of a substream initiated it.
type Direction int

const (
	// DirOutbound means the local side called OpenSubstream.
	DirOutbound Direction = iota
	// DirInbound means the remote side opened the substream.
	DirInbound
)

func (d Direction) String() string {
	if d == DirOutbound {
		return "outbound"
	}
	return "inbound"
}

// EventKind discriminates the Event union below.
type EventKind int

const (
	EvConnectionEstablished EventKind = iota
	EvConnectionClosed
	EvSubstreamOpened
	EvSubstreamOpenFailure
	EvDialFailure
	// EvKeepAlive is emitted periodically for an established connection
	// by implementations configured with a keep-alive interval; it
	// carries no payload beyond Peer/Conn and exists purely so a
	// consumer (or the admin event cache) can observe that a connection
	// is still being serviced.
	EvKeepAlive
)

// Event is the single union type the transport layer's event stream
// yields. Only the fields relevant to Kind are populated; callers switch
// on Kind first.
type Event struct {
	Kind EventKind

	Peer   peer.ID
	Conn   ConnectionID
	Stream SubstreamID

	// Protocol is set on EvSubstreamOpened/EvSubstreamOpenFailure.
	Protocol peer.ProtocolName
	// Direction is set on EvSubstreamOpened.
	Direction Direction
	// Fallback is true when EvSubstreamOpened negotiated a protocol other
	// than the one requested (multistream-select fallback).
	Fallback bool

	// Substream carries the opened substream on EvSubstreamOpened.
	Substream Substream

	// Err carries the failure reason for EvSubstreamOpenFailure and
	// EvDialFailure.
	Err error
}

// Service is the transport layer's contract with its consumers: a
// non-blocking request surface (OpenSubstream, Dial) plus a single shared
// event stream that reports connection and substream lifecycle
// asynchronously. Implementations must never block the caller of
// OpenSubstream or Dial; the actual work completes and is reported later
// as an Event.
type Service interface {
	// Events returns the channel every lifecycle Event is delivered on.
	// There is exactly one event stream per Service instance; consumers
	// that need per-protocol fan-out should layer a Dispatcher on top.
	Events() <-chan Event

	// OpenSubstream requests a new substream to an already-connected peer
	// for the given protocol. It returns the SubstreamID assigned to the
	// pending open immediately; the call itself does not block for the
	// network round-trip. Success or failure is reported later as
	// EvSubstreamOpened or EvSubstreamOpenFailure, both carrying the same
	// SubstreamID so the caller can correlate the two.
	OpenSubstream(ctx context.Context, p peer.ID, proto peer.ProtocolName) (SubstreamID, error)

	// Dial requests a connection to p. Address resolution (turning a peer
	// id into a reachable multiaddress) is a collaborator's job, out of
	// scope here; like OpenSubstream this does not block for the network
	// round-trip. Success is reported as EvConnectionEstablished, failure
	// as EvDialFailure.
	Dial(ctx context.Context, p peer.ID) error

	// LocalPeer returns the identity this Service operates under.
	LocalPeer() peer.ID

	// Close tears the service down, closing every live connection and
	// the event stream.
	Close() error
}
