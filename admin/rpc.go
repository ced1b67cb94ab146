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

package admin

import (
	"context"
	"net/http"

	"p2pcore/admin/cache"
	"p2pcore/reqresp"
)

// StatsArgs is the (empty) argument type for the stats RPC methods; both
// take no parameters but gorilla/rpc requires a concrete args type.
type StatsArgs struct{}

// EngineStatsReply carries one snapshot per registered protocol engine.
type EngineStatsReply struct {
	Engines []reqresp.EngineStats `json:"engines"`
}

// ConnectionStatsReply carries the liveness of every registered
// notification connection.
type ConnectionStatsReply struct {
	Connections []ConnectionSnapshot `json:"connections"`
}

// RecentEventsArgs selects how many cached events to return.
type RecentEventsArgs struct {
	Count int64 `json:"count"`
}

// RecentEventsReply carries the cached events, newest first.
type RecentEventsReply struct {
	Events []cache.Event `json:"events"`
}

// StatsService is registered as a gorilla/rpc JSON-RPC service; each
// exported method follows the fixed signature the library requires:
// func(*http.Request, *Args, *Reply) error.
type StatsService struct {
	registry *Registry
	events   *cache.Cache
}

// EngineStats reports a snapshot of every registered reqresp.Engine.
func (s *StatsService) EngineStats(r *http.Request, args *StatsArgs, reply *EngineStatsReply) error {
	reply.Engines = s.registry.EngineSnapshots()
	return nil
}

// ConnectionStats reports the liveness of every registered
// notify.Connection.
func (s *StatsService) ConnectionStats(r *http.Request, args *StatsArgs, reply *ConnectionStatsReply) error {
	reply.Connections = s.registry.ConnectionSnapshots()
	return nil
}

// RecentEvents returns the most recently cached events, if an event
// cache was configured; an empty list otherwise.
func (s *StatsService) RecentEvents(r *http.Request, args *RecentEventsArgs, reply *RecentEventsReply) error {
	reply.Events = s.events.Recent(context.Background(), args.Count)
	return nil
}
