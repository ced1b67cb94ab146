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
	"time"

	"p2pcore/peer"
	"p2pcore/transport"
)

type recvResult struct {
	frame []byte
	err   error
}

// runOutboundFuture is the in-flight request future spawned once an
// outbound substream has opened. It owns the substream exclusively until
// it yields a resolvedRequest, matching the single-ownership discipline:
// the substream is never touched by engine tables while this is running.
func (e *Engine) runOutboundFuture(ctx context.Context, rc *RequestContext, sub transport.Substream, cancelCh chan struct{}) {
	if err := sub.SendFramed(ctx, rc.Payload); err != nil {
		res := resolvedRequest{peer: rc.Peer, id: rc.RequestID, err: errNotConnected}
		if se, ok := err.(*transport.SendError); ok && se.Kind == transport.SendErrTooLarge {
			res.err = errTooLargePayload
		}
		_ = sub.Close()
		e.resolvedCh <- res
		return
	}

	recvCtx, cancelRecv := context.WithCancel(ctx)
	defer cancelRecv()
	recvCh := make(chan recvResult, 1)
	go func() {
		frame, err := sub.Recv(recvCtx)
		recvCh <- recvResult{frame: frame, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	var res resolvedRequest
	res.peer = rc.Peer
	res.id = rc.RequestID
	select {
	case <-cancelCh:
		res.err = errCanceled
	case <-timer.C:
		res.err = errTimeout
	case r := <-recvCh:
		if r.err != nil {
			res.err = errRejected
		} else {
			res.payload = r.frame
		}
	}
	_ = sub.Close()
	e.resolvedCh <- res
}

// readFirstFrame waits for the first frame of a freshly opened inbound
// substream: the request payload itself, which is what turns an opened
// substream into a RequestReceived event.
func (e *Engine) readFirstFrame(ctx context.Context, p peer.ID, id RequestID, sub transport.Substream) {
	frame, err := sub.Recv(ctx)
	e.firstFrameCh <- firstFrameResult{peer: p, id: id, sub: sub, frame: frame, err: err}
}

func (e *Engine) handleResolved(res resolvedRequest) {
	delete(e.pendingOutboundCancels, res.id)
	pc, ok := e.peers[res.peer]
	if !ok {
		// onConnectionClosed already reported this request as Rejected.
		return
	}
	if _, active := pc.Active[res.id]; !active {
		return
	}
	delete(pc.Active, res.id)
	if res.err != nil {
		e.emit(RequestFailed{Peer: res.peer, RequestID: res.id, Err: res.err})
		return
	}
	e.emit(ResponseReceived{Peer: res.peer, RequestID: res.id, Response: res.payload})
}

func (e *Engine) handleFirstFrame(fr firstFrameResult) {
	delete(e.pendingInboundRequests, inboundKey{peer: fr.peer, id: fr.id})

	pc, ok := e.peers[fr.peer]
	fallback := false
	if ok {
		fallback = pc.ActiveInbound[fr.id]
		delete(pc.ActiveInbound, fr.id)
	}
	if fr.err != nil {
		_ = fr.sub.Close()
		return
	}
	e.pendingOutboundResponse[fr.id] = fr.sub
	e.emit(RequestReceived{Peer: fr.peer, Fallback: fallback, RequestID: fr.id, Request: fr.frame})
}
