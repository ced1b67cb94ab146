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
	"context"

	"github.com/bfix/gospel/logger"

	"p2pcore/transport"
)

func (e *Engine) handleTransportEvent(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EvConnectionEstablished:
		e.onConnectionEstablished(ctx, ev)
	case transport.EvConnectionClosed:
		e.onConnectionClosed(ev)
	case transport.EvSubstreamOpened:
		if ev.Direction == transport.DirOutbound {
			e.onSubstreamOpenedOutbound(ctx, ev)
		} else {
			e.onSubstreamOpenedInbound(ctx, ev)
		}
	case transport.EvSubstreamOpenFailure:
		e.onSubstreamOpenFailure(ev)
	case transport.EvDialFailure:
		e.onDialFailure(ev)
	default:
		logger.Printf(logger.WARN, "[reqresp] unhandled transport event kind %d", ev.Kind)
	}
}

func (e *Engine) onConnectionEstablished(ctx context.Context, ev transport.Event) {
	if _, exists := e.peers[ev.Peer]; exists {
		logger.Printf(logger.ERROR, "[reqresp] duplicate ConnectionEstablished for %s", ev.Peer.Short())
	} else {
		e.peers[ev.Peer] = newPeerContext()
	}
	pc := e.peers[ev.Peer]

	queued := e.pendingDials[ev.Peer]
	delete(e.pendingDials, ev.Peer)
	for _, rc := range queued {
		subID, err := e.svc.OpenSubstream(ctx, ev.Peer, e.protocol)
		if err != nil {
			e.emit(RequestFailed{Peer: rc.Peer, RequestID: rc.RequestID, Err: errRejected})
			continue
		}
		e.pendingOutbound[subID] = rc
		pc.Active[rc.RequestID] = struct{}{}
	}
}

func (e *Engine) onConnectionClosed(ev transport.Event) {
	pc, ok := e.peers[ev.Peer]
	if !ok {
		return
	}
	for id := range pc.Active {
		e.emit(RequestFailed{Peer: ev.Peer, RequestID: id, Err: errRejected})
	}
	delete(e.peers, ev.Peer)
}

func (e *Engine) onSubstreamOpenedOutbound(ctx context.Context, ev transport.Event) {
	rc, ok := e.pendingOutbound[ev.Stream]
	if !ok {
		logger.Printf(logger.WARN, "[reqresp] SubstreamOpened for unknown outbound stream %d", ev.Stream)
		_ = ev.Substream.Close()
		return
	}
	delete(e.pendingOutbound, ev.Stream)
	cancelCh := make(chan struct{})
	e.pendingOutboundCancels[rc.RequestID] = cancelCh
	go e.runOutboundFuture(ctx, rc, ev.Substream, cancelCh)
}

func (e *Engine) onSubstreamOpenedInbound(ctx context.Context, ev transport.Event) {
	id := e.nextID()
	pc, ok := e.peers[ev.Peer]
	if !ok {
		pc = newPeerContext()
		e.peers[ev.Peer] = pc
	}
	pc.ActiveInbound[id] = ev.Fallback
	key := inboundKey{peer: ev.Peer, id: id}
	e.pendingInboundRequests[key] = ev.Substream
	go e.readFirstFrame(ctx, ev.Peer, id, ev.Substream)
}

func (e *Engine) onSubstreamOpenFailure(ev transport.Event) {
	rc, ok := e.pendingOutbound[ev.Stream]
	if !ok {
		return
	}
	delete(e.pendingOutbound, ev.Stream)
	if pc, ok := e.peers[rc.Peer]; ok {
		delete(pc.Active, rc.RequestID)
	}
	e.emit(RequestFailed{Peer: rc.Peer, RequestID: rc.RequestID, Err: errRejected})
}

func (e *Engine) onDialFailure(ev transport.Event) {
	queued, ok := e.pendingDials[ev.Peer]
	if !ok {
		return
	}
	delete(e.pendingDials, ev.Peer)
	for _, rc := range queued {
		e.emit(RequestFailed{Peer: rc.Peer, RequestID: rc.RequestID, Err: errRejected})
	}
}
