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
	"sync"

	"github.com/bfix/gospel/logger"

	"p2pcore/peer"
)

// Dispatcher fans the single Service event stream out to one listener per
// protocol, the way the core service used to hand events to per-module
// Listeners filtered by message type. Here the filter key is a
// peer.ProtocolName instead of a GNUnet message type, since substreams
// are the unit every consumer (reqresp, notify) cares about.
//
// Events that carry no protocol (connection-level events) are broadcast
// to every registered listener.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[peer.ProtocolName][]chan Event
	all       []chan Event
}

// NewDispatcher wraps svc, starting a goroutine that drains its event
// stream and fans it out until svc.Events() closes.
func NewDispatcher(svc Service) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[peer.ProtocolName][]chan Event),
	}
	go d.run(svc)
	return d
}

func (d *Dispatcher) run(svc Service) {
	for ev := range svc.Events() {
		d.dispatch(ev)
	}
	d.mu.Lock()
	for _, chans := range d.listeners {
		for _, ch := range chans {
			close(ch)
		}
	}
	for _, ch := range d.all {
		close(ch)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) dispatch(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ev.Protocol != "" {
		for _, ch := range d.listeners[ev.Protocol] {
			select {
			case ch <- ev:
			default:
				logger.Printf(logger.WARN, "[transport] dispatcher dropped event for %s: listener full", ev.Protocol)
			}
		}
	} else {
		// Connection-level events carry no protocol but matter to every
		// protocol engine tracking that peer, so every registered
		// protocol listener receives them.
		for proto, chans := range d.listeners {
			for _, ch := range chans {
				select {
				case ch <- ev:
				default:
					logger.Printf(logger.WARN, "[transport] dispatcher dropped connection event for %s: listener full", proto)
				}
			}
		}
	}
	for _, ch := range d.all {
		select {
		case ch <- ev:
		default:
			logger.Printf(logger.WARN, "[transport] dispatcher dropped broadcast event: listener full")
		}
	}
}

// Subscribe registers a buffered channel that receives every Event whose
// Protocol matches proto, plus every connection-level event.
func (d *Dispatcher) Subscribe(proto peer.ProtocolName, buf int) <-chan Event {
	ch := make(chan Event, buf)
	d.mu.Lock()
	d.listeners[proto] = append(d.listeners[proto], ch)
	d.mu.Unlock()
	return ch
}

// SubscribeAll registers a buffered channel that receives every event
// regardless of protocol, for admin/introspection use.
func (d *Dispatcher) SubscribeAll(buf int) <-chan Event {
	ch := make(chan Event, buf)
	d.mu.Lock()
	d.all = append(d.all, ch)
	d.mu.Unlock()
	return ch
}
