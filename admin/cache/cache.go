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

// Package cache holds the admin surface's recent-event ring buffer in a
// Redis list via github.com/go-redis/redis/v8, chosen for pluggable
// caching rather than durable storage. Nothing here is required for the
// module to function - it is purely an optional observability aid, so
// every method tolerates a nil receiver or a disconnected client.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bfix/gospel/logger"
	redis "github.com/go-redis/redis/v8"
)

// Event is one entry appended to the ring buffer.
type Event struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Peer   string    `json:"peer,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Cache is a fixed-length Redis list acting as a ring buffer of the most
// recent Events. A nil *Cache is valid and every method on it is a no-op,
// so callers need not special-case the "no redis configured" case.
type Cache struct {
	client *redis.Client
	key    string
	max    int64
}

// New connects to a Redis server at addr. addr == "" disables the cache
// entirely (New returns nil, and every subsequent call on it is a no-op).
func New(addr, key string, max int64) *Cache {
	if addr == "" {
		return nil
	}
	if key == "" {
		key = "p2pcore:events"
	}
	if max <= 0 {
		max = 256
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
		max:    max,
	}
}

// Push appends ev to the ring buffer, trimming it back down to the
// configured maximum length.
func (c *Cache) Push(ctx context.Context, ev Event) {
	if c == nil {
		return
	}
	buf, err := json.Marshal(ev)
	if err != nil {
		logger.Printf(logger.WARN, "[admin/cache] marshal failed: %s", err)
		return
	}
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, c.key, buf)
	pipe.LTrim(ctx, c.key, 0, c.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Printf(logger.WARN, "[admin/cache] push failed: %s", err)
	}
}

// Recent returns up to n of the most recently pushed events, newest
// first. It returns an empty slice (never an error) when the cache is
// disabled or the Redis round-trip fails, since this is a best-effort
// introspection aid and must never fail a request because of it.
func (c *Cache) Recent(ctx context.Context, n int64) []Event {
	out := make([]Event, 0)
	if c == nil {
		return out
	}
	if n <= 0 || n > c.max {
		n = c.max
	}
	vals, err := c.client.LRange(ctx, c.key, 0, n-1).Result()
	if err != nil {
		logger.Printf(logger.WARN, "[admin/cache] read failed: %s", err)
		return out
	}
	for _, v := range vals {
		var ev Event
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
