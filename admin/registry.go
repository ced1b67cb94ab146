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

// Package admin provides the introspection HTTP surface: a JSON-RPC
// endpoint exposing live reqresp.Engine and notify.Connection stats,
// built around one shared mux.Router and gorilla/rpc's JSON codec so
// every registered module shares one registration pattern instead of
// ad hoc per-module handlers.
package admin

import (
	"context"
	"time"

	"p2pcore/admin/cache"
	"p2pcore/notify"
	"p2pcore/peer"
	"p2pcore/reqresp"
	"p2pcore/util"
)

// Registry tracks the live engines and notification connections a
// running process wants to expose, and (when an event cache was
// configured) relays the traffic a caller observes on them into that
// cache for the RecentEvents RPC. Engines and connections publish their
// own stats safely from other goroutines (reqresp.Engine.Stats,
// notify.Connection.Alive); Registry only protects the bookkeeping maps
// that point at them, via the same read/write-locked util.ConcurrentMap
// every other concurrent table in this module is built on.
type Registry struct {
	engines *util.ConcurrentMap[peer.ProtocolName, *reqresp.Engine]
	conns   *util.ConcurrentMap[peer.ID, *notify.Connection]
	events  *cache.Cache
}

// NewRegistry builds an empty Registry. events may be nil, in which
// case RecordEvent is a silent no-op (cache.Cache already tolerates a
// nil receiver, so no extra branching is needed here).
func NewRegistry(events *cache.Cache) *Registry {
	return &Registry{
		engines: util.NewConcurrentMap[peer.ProtocolName, *reqresp.Engine](),
		conns:   util.NewConcurrentMap[peer.ID, *notify.Connection](),
		events:  events,
	}
}

// RegisterEngine makes e's stats visible under its protocol name.
func (r *Registry) RegisterEngine(proto peer.ProtocolName, e *reqresp.Engine) {
	r.engines.Put(proto, e)
}

// RegisterConnection makes c's liveness visible under its peer id.
func (r *Registry) RegisterConnection(p peer.ID, c *notify.Connection) {
	r.conns.Put(p, c)
}

// UnregisterConnection removes a closed connection from the registry.
func (r *Registry) UnregisterConnection(p peer.ID) {
	r.conns.Delete(p)
}

// RecordEvent appends one entry to the configured event cache, so a
// caller watching reqresp.Engine or notify.Connection traffic can make
// it visible on the RecentEvents RPC by calling this for every event it
// observes; it is a no-op when no cache was configured.
func (r *Registry) RecordEvent(kind string, p peer.ID, detail string) {
	r.events.Push(context.Background(), cache.Event{
		Time:   time.Now(),
		Kind:   kind,
		Peer:   p.String(),
		Detail: detail,
	})
}

// EngineSnapshots returns a stats snapshot for every registered engine.
func (r *Registry) EngineSnapshots() []reqresp.EngineStats {
	out := make([]reqresp.EngineStats, 0, r.engines.Size())
	r.engines.Range(func(_ peer.ProtocolName, e *reqresp.Engine) {
		out = append(out, e.Stats())
	})
	return out
}

// ConnectionSnapshot describes one tracked notification connection.
type ConnectionSnapshot struct {
	Peer  string `json:"peer"`
	Alive bool   `json:"alive"`
}

// ConnectionSnapshots returns the liveness of every registered
// notification connection.
func (r *Registry) ConnectionSnapshots() []ConnectionSnapshot {
	out := make([]ConnectionSnapshot, 0, r.conns.Size())
	r.conns.Range(func(p peer.ID, c *notify.Connection) {
		out = append(out, ConnectionSnapshot{Peer: p.String(), Alive: c.Alive()})
	})
	return out
}
