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

// Package notify implements the notification protocol connection
// driver: a long-lived bidirectional exchange over one inbound and one
// outbound substream, with backpressure between the remote peer and a
// local delivery sink. Unlike package reqresp there is no request/
// response correlation here - frames flow independently in each
// direction until either side closes.
package notify

import (
	"context"
	"sync/atomic"

	"github.com/bfix/gospel/logger"

	"p2pcore/peer"
	"p2pcore/transport"
)

// Notification is one event delivered to the user on notifTx: either an
// inbound frame from the remote peer, or - when Closed is true - notice
// that the connection has ended. The Closed variant is sent at most once
// per Connection, on every termination path including local shutdown,
// where conn_closed_tx stays silent. The send does not block: if notifTx
// has no free slot at that moment, the Closed notification is dropped
// and a warning is logged.
type Notification struct {
	Peer   peer.ID
	Frame  []byte
	Closed bool
	Err    error
}

// Closed is emitted on conn_closed_tx when the remote or the network
// layer terminated the connection (never when the local shutdown_rx
// signal initiated the close).
type Closed struct {
	Peer peer.ID
	Err  error
}

// Connection owns one inbound and one outbound substream for a single
// peer and runs a biased main loop on its own goroutine, so shutdown
// and user sends are always serviced ahead of routine traffic. Once Run
// has started, the loop state is touched only by that goroutine; alive
// is atomic and is read from other goroutines through Alive.
type Connection struct {
	peer     peer.ID
	inbound  transport.Substream
	outbound transport.Substream

	asyncRx  <-chan []byte
	syncRx   <-chan []byte
	notifTx  chan<- Notification
	shutdown <-chan struct{}
	closedTx chan<- Closed

	// pending holds the single inbound frame read from `inbound` but not
	// yet delivered to notifTx; at most one frame is ever buffered here,
	// so a slow consumer bounds memory instead of an unbounded queue.
	pending []byte

	inboundReadCh chan readResult
	readingInbound bool

	outboundReadCh chan readResult
	readingOutbound bool

	alive atomic.Bool
}

type readResult struct {
	frame []byte
	err   error
}

// New builds a Connection. asyncRx and syncRx are the two outbound
// queues the user enqueues notifications on; notifTx is where inbound
// notifications are delivered; shutdown is a one-shot the surrounding
// protocol closes to request termination; closedTx is signalled only
// when the remote or transport - not the local shutdown request -
// ended the connection.
func New(p peer.ID, inbound, outbound transport.Substream, asyncRx, syncRx <-chan []byte,
	notifTx chan<- Notification, shutdown <-chan struct{}, closedTx chan<- Closed) *Connection {
	return &Connection{
		peer:           p,
		inbound:        inbound,
		outbound:       outbound,
		asyncRx:        asyncRx,
		syncRx:         syncRx,
		notifTx:        notifTx,
		shutdown:       shutdown,
		closedTx:       closedTx,
		inboundReadCh:  make(chan readResult, 1),
		outboundReadCh: make(chan readResult, 1),
	}
}

// Peer returns the remote peer this connection serves.
func (c *Connection) Peer() peer.ID {
	return c.peer
}

// Alive reports whether Run is still actively driving this connection,
// readable from any goroutine (the admin introspection surface).
func (c *Connection) Alive() bool {
	return c.alive.Load()
}

// Run executes the main loop until termination. It always returns
// having called close() on both substreams exactly once.
func (c *Connection) Run(ctx context.Context) {
	logger.Printf(logger.INFO, "[notify] connection to %s starting", c.peer.Short())
	c.alive.Store(true)
	for {
		c.ensureReading(ctx)

		// Step 1: shutdown signal.
		select {
		case <-c.shutdown:
			c.terminate(false, nil)
			return
		default:
		}

		// Step 2: async send.
		select {
		case frame, ok := <-c.asyncRx:
			if !ok {
				c.terminate(true, errChannelClosed)
				return
			}
			if err := c.outbound.SendFramed(ctx, frame); err != nil {
				c.terminate(true, err)
				return
			}
			continue
		default:
		}

		// Step 3: sync send.
		select {
		case frame, ok := <-c.syncRx:
			if !ok {
				c.terminate(true, errChannelClosed)
				return
			}
			if err := c.outbound.SendFramed(ctx, frame); err != nil {
				c.terminate(true, err)
				return
			}
			continue
		default:
		}

		// Step 4: deliver a previously buffered inbound frame, only if one
		// is pending and notifTx can accept it without blocking.
		if c.pending != nil {
			select {
			case c.notifTx <- Notification{Peer: c.peer, Frame: c.pending}:
				c.pending = nil
				continue
			default:
			}
		}

		// Step 5: read the inbound substream, only when nothing is
		// buffered (the backpressure invariant).
		if c.pending == nil {
			select {
			case r := <-c.inboundReadCh:
				c.readingInbound = false
				if r.err != nil {
					c.terminate(true, r.err)
					return
				}
				c.pending = r.frame
				continue
			default:
			}
		}

		// Step 6: probe the outbound substream for unexpected inbound
		// traffic (the remote should never write on it); also detects the
		// remote closing it.
		select {
		case r := <-c.outboundReadCh:
			c.readingOutbound = false
			if r.err != nil {
				c.terminate(true, r.err)
				return
			}
			logger.Printf(logger.WARN, "[notify] unexpected frame on outbound substream from %s (%d bytes)", c.peer.Short(), len(r.frame))
			continue
		default:
		}

		// Nothing was ready this round: block until something is. A
		// buffered frame is offered to notifTx here too, so freed capacity
		// wakes the loop.
		var deliverTx chan<- Notification
		if c.pending != nil {
			deliverTx = c.notifTx
		}
		select {
		case <-c.shutdown:
			c.terminate(false, nil)
			return
		case deliverTx <- Notification{Peer: c.peer, Frame: c.pending}:
			c.pending = nil
		case frame, ok := <-c.asyncRx:
			if !ok {
				c.terminate(true, errChannelClosed)
				return
			}
			if err := c.outbound.SendFramed(ctx, frame); err != nil {
				c.terminate(true, err)
				return
			}
		case frame, ok := <-c.syncRx:
			if !ok {
				c.terminate(true, errChannelClosed)
				return
			}
			if err := c.outbound.SendFramed(ctx, frame); err != nil {
				c.terminate(true, err)
				return
			}
		case r := <-c.inboundReadCh:
			c.readingInbound = false
			if r.err != nil {
				c.terminate(true, r.err)
				return
			}
			c.pending = r.frame
		case r := <-c.outboundReadCh:
			c.readingOutbound = false
			if r.err != nil {
				c.terminate(true, r.err)
				return
			}
			logger.Printf(logger.WARN, "[notify] unexpected frame on outbound substream from %s (%d bytes)", c.peer.Short(), len(r.frame))
		case <-ctx.Done():
			c.terminate(true, ctx.Err())
			return
		}
	}
}

// ensureReading keeps exactly one outstanding read per substream: the
// inbound read only while no frame is buffered, the outbound probe
// always (it only ever observes protocol violations or remote close).
func (c *Connection) ensureReading(ctx context.Context) {
	if c.pending == nil && !c.readingInbound {
		c.readingInbound = true
		go func() {
			frame, err := c.inbound.Recv(ctx)
			c.inboundReadCh <- readResult{frame: frame, err: err}
		}()
	}
	if !c.readingOutbound {
		c.readingOutbound = true
		go func() {
			frame, err := c.outbound.Recv(ctx)
			c.outboundReadCh <- readResult{frame: frame, err: err}
		}()
	}
}

// terminate closes both substreams exactly once and reports the user
// event; notifyProtocol controls whether conn_closed_tx additionally
// fires (it must not, when the local shutdown_rx initiated the close).
// The notifTx closed notification fires regardless of notifyProtocol,
// since it is the only channel a caller driven purely by notifTx ever
// observes, and it must learn the stream ended even on local shutdown.
func (c *Connection) terminate(notifyProtocol bool, err error) {
	c.alive.Store(false)
	_ = c.inbound.Close()
	_ = c.outbound.Close()
	logger.Printf(logger.INFO, "[notify] connection to %s closed (notify=%v err=%v)", c.peer.Short(), notifyProtocol, err)
	if c.notifTx != nil {
		select {
		case c.notifTx <- Notification{Peer: c.peer, Closed: true, Err: err}:
		default:
			logger.Printf(logger.WARN, "[notify] notifTx full for %s, dropping closed notification", c.peer.Short())
		}
	}
	if notifyProtocol && c.closedTx != nil {
		select {
		case c.closedTx <- Closed{Peer: c.peer, Err: err}:
		default:
			logger.Printf(logger.WARN, "[notify] conn_closed_tx full for %s, dropping", c.peer.Short())
		}
	}
}
