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

package notify

import (
	"context"
	"testing"
	"time"

	"p2pcore/peer"
	"p2pcore/transport"
)

// TestNotificationRoundTrip drives both directions of a connection at
// once: a push from the local side arrives at a bare remote reader, a
// push from the remote side arrives on notifTx, and a shutdown signal
// closes both ends, delivering the Closed notification on notifTx
// without firing conn_closed_tx.
func TestNotificationRoundTrip(t *testing.T) {
	id, err := peer.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}

	// Two independent substream pairs stand in for the inbound/outbound
	// pair a real transport would hand out for one notification protocol
	// connection.
	localOut, remoteIn := transport.NewMemSubstreamPair()
	remoteOut, localIn := transport.NewMemSubstreamPair()

	asyncRx := make(chan []byte, 4)
	syncRx := make(chan []byte, 4)
	notifTx := make(chan Notification, 4)
	shutdown := make(chan struct{})
	closedTx := make(chan Closed, 1)

	conn := New(id.ID(), localIn, localOut, asyncRx, syncRx, notifTx, shutdown, closedTx)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	asyncRx <- []byte{0x10}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	frame, err := remoteIn.Recv(recvCtx)
	if err != nil {
		t.Fatalf("remote did not receive pushed frame: %s", err)
	}
	if len(frame) != 1 || frame[0] != 0x10 {
		t.Fatalf("unexpected frame at remote: %v", frame)
	}

	sendCtx, sendCancel := context.WithTimeout(context.Background(), time.Second)
	defer sendCancel()
	if err := remoteOut.SendFramed(sendCtx, []byte{0x20}); err != nil {
		t.Fatalf("remote send failed: %s", err)
	}

	select {
	case n := <-notifTx:
		if len(n.Frame) != 1 || n.Frame[0] != 0x20 {
			t.Fatalf("unexpected notification: %v", n.Frame)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound notification")
	}

	close(shutdown)

	select {
	case n := <-notifTx:
		if !n.Closed {
			t.Fatalf("expected a Closed notification on notifTx, got a frame: %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the unconditional closed notification on notifTx")
	}

	select {
	case c := <-closedTx:
		t.Fatalf("conn_closed_tx fired on local shutdown: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestNotificationRemoteCloseReportsBoth drives a connection until the
// remote end closes its substream, and checks that both conn_closed_tx
// and the unconditional notifTx Closed notification fire.
func TestNotificationRemoteCloseReportsBoth(t *testing.T) {
	id, err := peer.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}

	localOut, remoteIn := transport.NewMemSubstreamPair()
	remoteOut, localIn := transport.NewMemSubstreamPair()

	asyncRx := make(chan []byte, 4)
	notifTx := make(chan Notification, 4)
	shutdown := make(chan struct{})
	closedTx := make(chan Closed, 1)

	conn := New(id.ID(), localIn, localOut, asyncRx, nil, notifTx, shutdown, closedTx)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	_ = remoteIn.Close()
	_ = remoteOut.Close()

	select {
	case c := <-closedTx:
		if c.Peer != id.ID() {
			t.Fatalf("unexpected peer on Closed event: %s", c.Peer.Short())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for conn_closed_tx")
	}

	select {
	case n := <-notifTx:
		if !n.Closed {
			t.Fatalf("expected a Closed notification on notifTx, got a frame: %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the unconditional closed notification on notifTx")
	}
}
