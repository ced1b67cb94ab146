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

package reqresp

import (
	"p2pcore/peer"
	"p2pcore/transport"
)

// RequestID is drawn from a process-wide monotonic counter (util.NextID
// by default); it is never reused within a process lifetime.
type RequestID = uint64

// DialOption tells SendRequest what to do when the target peer has no
// live connection.
type DialOption int

const (
	// Reject fails the request immediately with NotConnected.
	Reject DialOption = iota
	// Dial asks the transport to establish a connection first.
	Dial
)

// Command is the sum type of messages a user handle may send an Engine.
type Command interface{ isCommand() }

// SendRequest asks the engine to deliver payload to peer and report the
// response (or failure) under requestID.
type SendRequest struct {
	Peer      peer.ID
	RequestID RequestID
	Payload   []byte
	DialOpt   DialOption
}

func (SendRequest) isCommand() {}

// SendResponse answers a previously received inbound request.
type SendResponse struct {
	RequestID RequestID
	Payload   []byte
}

func (SendResponse) isCommand() {}

// RejectRequest declines to answer a previously received inbound
// request, closing its substream.
type RejectRequest struct {
	RequestID RequestID
}

func (RejectRequest) isCommand() {}

// CancelRequest asks the engine to abandon an in-flight outbound
// request. Issuing it any number of times, or after the request has
// already resolved, is safe and has no additional effect.
type CancelRequest struct {
	RequestID RequestID
}

func (CancelRequest) isCommand() {}

// Event is the sum type of messages an Engine emits to a user handle.
type Event interface{ isEvent() }

// RequestReceived reports an inbound request awaiting SendResponse or
// RejectRequest.
type RequestReceived struct {
	Peer      peer.ID
	Fallback  bool
	RequestID RequestID
	Request   []byte
}

func (RequestReceived) isEvent() {}

// ResponseReceived reports the successful terminal outcome of an
// outbound request.
type ResponseReceived struct {
	Peer      peer.ID
	RequestID RequestID
	Response  []byte
}

func (ResponseReceived) isEvent() {}

// RequestFailed reports the unsuccessful terminal outcome of an
// outbound request. Inbound requests that are never answered produce no
// RequestFailed.
type RequestFailed struct {
	Peer      peer.ID
	RequestID RequestID
	Err       error
}

func (RequestFailed) isEvent() {}

// PeerContext tracks the in-flight request ids associated with one
// connected peer.
type PeerContext struct {
	// Active holds every outbound RequestID for which a substream open
	// is pending, a request has been sent and awaits response, or a
	// cancellation is pending.
	Active map[RequestID]struct{}
	// ActiveInbound maps an ephemeral inbound RequestID to whether a
	// protocol fallback was negotiated for its substream.
	ActiveInbound map[RequestID]bool
}

func newPeerContext() *PeerContext {
	return &PeerContext{
		Active:        make(map[RequestID]struct{}),
		ActiveInbound: make(map[RequestID]bool),
	}
}

// RequestContext is the owned data of one outbound request: it lives in
// exactly one of pendingDials, pendingOutbound, or inside a spawned
// request future at any time.
type RequestContext struct {
	Peer      peer.ID
	RequestID RequestID
	Payload   []byte
}

// inboundKey identifies one inbound request awaiting its first frame.
type inboundKey struct {
	peer peer.ID
	id   RequestID
}

// resolvedRequest is what a spawned outbound-request future sends on
// the engine's resolvedCh.
type resolvedRequest struct {
	peer    peer.ID
	id      RequestID
	payload []byte
	err     error
}

// firstFrameResult is what an inbound-request first-frame reader yields.
type firstFrameResult struct {
	peer   peer.ID
	id     RequestID
	sub    transport.Substream
	frame  []byte
	err    error
}
