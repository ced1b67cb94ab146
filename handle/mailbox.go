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

// Package handle provides the typed, bounded mailboxes that bridge
// engines (reqresp.Engine, notify.Connection) and the applications that
// drive them. A Mailbox is multi-producer/single-
// consumer and reserves capacity before it commits a send, so a
// downstream reader that is momentarily busy never causes an upstream
// write to silently vanish into a full buffered channel - TrySend either
// succeeds or tells the caller to back off, it never drops.
package handle

import "errors"

// ErrClosed is returned by Send/TrySend once Close has been called.
var ErrClosed = errors.New("handle: mailbox closed")

// Mailbox wraps a buffered channel of T with reservation semantics: Send
// blocks until a slot is guaranteed available and TrySend takes one only
// if it is free right now; either way the slot is taken before the value
// is handed over, and the consumer returns it with Release.
type Mailbox[T any] struct {
	ch     chan T
	sem    chan struct{}
	closed chan struct{}
}

// New creates a Mailbox with the given buffer capacity.
func New[T any](capacity int) *Mailbox[T] {
	if capacity < 1 {
		capacity = 1
	}
	sem := make(chan struct{}, capacity)
	for i := 0; i < capacity; i++ {
		sem <- struct{}{}
	}
	return &Mailbox[T]{
		ch:     make(chan T, capacity),
		sem:    sem,
		closed: make(chan struct{}),
	}
}

// Send reserves a slot (blocking if the mailbox is momentarily full)
// and delivers value. It returns ErrClosed if the mailbox has been
// closed, either before or while waiting for a slot.
func (m *Mailbox[T]) Send(value T) error {
	select {
	case <-m.sem:
	case <-m.closed:
		return ErrClosed
	}
	select {
	case m.ch <- value:
		return nil
	case <-m.closed:
		return ErrClosed
	}
}

// TrySend reserves a slot without blocking; it reports false if none is
// free right now (the at-least-one-permit reservation the notification
// driver's backpressure-aware dispatch step relies on).
func (m *Mailbox[T]) TrySend(value T) (bool, error) {
	select {
	case <-m.closed:
		return false, ErrClosed
	default:
	}
	select {
	case <-m.sem:
	default:
		return false, nil
	}
	select {
	case m.ch <- value:
		return true, nil
	case <-m.closed:
		return false, ErrClosed
	}
}

// Recv exposes the receive side directly. Close does not close this
// channel: buffered values stay readable, and a receiver never observes
// ok=false, so it must watch for shutdown by other means.
func (m *Mailbox[T]) Recv() <-chan T {
	return m.ch
}

// Release returns a slot to the pool after the consumer has finished
// with a value pulled from Recv, keeping the reservation count accurate.
func (m *Mailbox[T]) Release() {
	select {
	case m.sem <- struct{}{}:
	default:
	}
}

// Close marks the mailbox closed; pending Send/TrySend calls unblock
// with ErrClosed. Close is idempotent.
func (m *Mailbox[T]) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}
