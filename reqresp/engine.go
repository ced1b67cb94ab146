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
	"sync/atomic"
	"time"

	"github.com/bfix/gospel/logger"

	"p2pcore/peer"
	"p2pcore/transport"
	"p2pcore/util"
)

// DefaultTimeout is the response wait applied when an Engine is built
// without an explicit one.
const DefaultTimeout = 5 * time.Second

// Engine drives one protocol's request/response traffic with every
// connected peer. Its internal tables are touched only by the goroutine
// running Run; nothing here needs a lock.
type Engine struct {
	protocol peer.ProtocolName
	local    peer.ID
	timeout  time.Duration
	nextID   func() uint64

	svc      transport.Service
	transpEv <-chan transport.Event
	commands <-chan Command
	eventsTx chan<- Event

	peers                   map[peer.ID]*PeerContext
	pendingDials            map[peer.ID][]*RequestContext
	pendingOutbound         map[transport.SubstreamID]*RequestContext
	pendingOutboundResponse map[RequestID]transport.Substream
	pendingOutboundCancels  map[RequestID]chan struct{}
	pendingInboundRequests  map[inboundKey]transport.Substream

	resolvedCh   chan resolvedRequest
	firstFrameCh chan firstFrameResult

	stats atomic.Value // holds EngineStats
}

// EngineStats is a point-in-time snapshot of an Engine's table sizes,
// published by the Run goroutine and safe to read from any other
// goroutine (the admin introspection surface, tests).
type EngineStats struct {
	Protocol        string
	ConnectedPeers  int
	PendingDials    int
	PendingOutbound int
	PendingInbound  int
}

// Stats returns the most recent published snapshot. Before Run's first
// iteration it reports zero values for every table.
func (e *Engine) Stats() EngineStats {
	if v := e.stats.Load(); v != nil {
		return v.(EngineStats)
	}
	return EngineStats{Protocol: string(e.protocol)}
}

// publishStats must only be called from the goroutine running Run.
func (e *Engine) publishStats() {
	e.stats.Store(EngineStats{
		Protocol:        string(e.protocol),
		ConnectedPeers:  len(e.peers),
		PendingDials:    len(e.pendingDials),
		PendingOutbound: len(e.pendingOutbound),
		PendingInbound:  len(e.pendingInboundRequests),
	})
}

// NewEngine builds an Engine for protocol, consuming transpEv (already
// filtered to this protocol's substream-open traffic by a
// transport.Dispatcher) and commands from the user handle, emitting to
// eventsTx. nextID defaults to util.NextID when nil, a process-wide
// shared counter so ephemeral request ids never collide across engines.
func NewEngine(svc transport.Service, local peer.ID, protocol peer.ProtocolName, timeout time.Duration,
	transpEv <-chan transport.Event, commands <-chan Command, eventsTx chan<- Event, nextID func() uint64) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if nextID == nil {
		nextID = util.NextID
	}
	return &Engine{
		protocol:                protocol,
		local:                   local,
		timeout:                 timeout,
		nextID:                  nextID,
		svc:                     svc,
		transpEv:                transpEv,
		commands:                commands,
		eventsTx:                eventsTx,
		peers:                   make(map[peer.ID]*PeerContext),
		pendingDials:            make(map[peer.ID][]*RequestContext),
		pendingOutbound:         make(map[transport.SubstreamID]*RequestContext),
		pendingOutboundResponse: make(map[RequestID]transport.Substream),
		pendingOutboundCancels:  make(map[RequestID]chan struct{}),
		pendingInboundRequests:  make(map[inboundKey]transport.Substream),
		resolvedCh:              make(chan resolvedRequest, 32),
		firstFrameCh:            make(chan firstFrameResult, 32),
	}
}

// Run executes the engine's event loop until ctx is canceled or the
// command channel is closed. It returns when the engine has fully shut
// down.
func (e *Engine) Run(ctx context.Context) {
	logger.Printf(logger.INFO, "[reqresp] engine for protocol %s starting", e.protocol)
	for {
		e.publishStats()

		// Priority 1: transport events.
		select {
		case ev, ok := <-e.transpEv:
			if !ok {
				return
			}
			e.handleTransportEvent(ctx, ev)
			continue
		case <-ctx.Done():
			return
		default:
		}

		// Priority 2: completed request futures.
		select {
		case res := <-e.resolvedCh:
			e.handleResolved(res)
			continue
		default:
		}

		// Priority 3: first inbound frames.
		select {
		case fr := <-e.firstFrameCh:
			e.handleFirstFrame(fr)
			continue
		default:
		}

		// Priority 4: user commands.
		select {
		case cmd, ok := <-e.commands:
			if !ok {
				logger.Printf(logger.INFO, "[reqresp] command channel closed for %s, shutting down", e.protocol)
				return
			}
			e.handleCommand(ctx, cmd)
			continue
		default:
		}

		// Nothing ready: block on whichever source produces next.
		select {
		case ev, ok := <-e.transpEv:
			if !ok {
				return
			}
			e.handleTransportEvent(ctx, ev)
		case res := <-e.resolvedCh:
			e.handleResolved(res)
		case fr := <-e.firstFrameCh:
			e.handleFirstFrame(fr)
		case cmd, ok := <-e.commands:
			if !ok {
				logger.Printf(logger.INFO, "[reqresp] command channel closed for %s, shutting down", e.protocol)
				return
			}
			e.handleCommand(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) emit(ev Event) {
	select {
	case e.eventsTx <- ev:
	default:
		logger.Printf(logger.WARN, "[reqresp] event channel full for %s, dropping event", e.protocol)
	}
}

// --- commands -------------------------------------------------------

func (e *Engine) handleCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case SendRequest:
		e.doSendRequest(ctx, c)
	case SendResponse:
		e.doSendResponse(ctx, c)
	case RejectRequest:
		e.doRejectRequest(c)
	case CancelRequest:
		e.doCancelRequest(c)
	default:
		logger.Printf(logger.ERROR, "[reqresp] unknown command type %T", cmd)
	}
}

func (e *Engine) doSendRequest(ctx context.Context, c SendRequest) {
	rc := &RequestContext{Peer: c.Peer, RequestID: c.RequestID, Payload: c.Payload}

	pc, connected := e.peers[c.Peer]
	if !connected {
		switch c.DialOpt {
		case Reject:
			e.emit(RequestFailed{Peer: c.Peer, RequestID: c.RequestID, Err: errNotConnected})
		case Dial:
			if err := e.svc.Dial(ctx, c.Peer); err != nil {
				e.emit(RequestFailed{Peer: c.Peer, RequestID: c.RequestID, Err: errRejected})
				return
			}
			e.pendingDials[c.Peer] = append(e.pendingDials[c.Peer], rc)
		}
		return
	}

	subID, err := e.svc.OpenSubstream(ctx, c.Peer, e.protocol)
	if err != nil {
		e.emit(RequestFailed{Peer: c.Peer, RequestID: c.RequestID, Err: errRejected})
		return
	}
	e.pendingOutbound[subID] = rc
	pc.Active[c.RequestID] = struct{}{}
}

func (e *Engine) doSendResponse(ctx context.Context, c SendResponse) {
	sub, ok := e.pendingOutboundResponse[c.RequestID]
	if !ok {
		logger.Printf(logger.WARN, "[reqresp] SendResponse for unknown request %d", c.RequestID)
		return
	}
	delete(e.pendingOutboundResponse, c.RequestID)
	if err := sub.SendFramed(ctx, c.Payload); err != nil {
		logger.Printf(logger.WARN, "[reqresp] response send failed for request %d: %s", c.RequestID, err)
		_ = sub.Close()
	}
}

func (e *Engine) doRejectRequest(c RejectRequest) {
	sub, ok := e.pendingOutboundResponse[c.RequestID]
	if !ok {
		return
	}
	delete(e.pendingOutboundResponse, c.RequestID)
	_ = sub.Close()
}

func (e *Engine) doCancelRequest(c CancelRequest) {
	ch, ok := e.pendingOutboundCancels[c.RequestID]
	if !ok {
		// Already resolved or never existed: silently succeed.
		return
	}
	delete(e.pendingOutboundCancels, c.RequestID)
	close(ch)
}
