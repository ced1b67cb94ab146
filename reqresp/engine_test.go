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
	"fmt"
	"testing"
	"time"

	"p2pcore/peer"
	"p2pcore/transport"
	quicfabric "p2pcore/transport/quic"
)

const testProto peer.ProtocolName = "/test/echo/1.0.0"

// fakeService is a hand-wound transport.Service used to drive the engine
// through scenarios that need precise control over dial/open outcomes
// and timing (timeout, cancellation, dial failure, connection drop) -
// the loopback quic.Manager used elsewhere in this file models realistic
// two-sided traffic but can't easily be made to fail on cue.
type fakeService struct {
	local  peer.ID
	events chan transport.Event

	openFn func(ctx context.Context, p peer.ID, proto peer.ProtocolName) (transport.SubstreamID, error)
	dialFn func(ctx context.Context, p peer.ID) error
}

func newFakeService(local peer.ID) *fakeService {
	return &fakeService{local: local, events: make(chan transport.Event, 16)}
}

func (s *fakeService) Events() <-chan transport.Event { return s.events }

func (s *fakeService) OpenSubstream(ctx context.Context, p peer.ID, proto peer.ProtocolName) (transport.SubstreamID, error) {
	return s.openFn(ctx, p, proto)
}

func (s *fakeService) Dial(ctx context.Context, p peer.ID) error {
	return s.dialFn(ctx, p)
}

func (s *fakeService) LocalPeer() peer.ID { return s.local }

func (s *fakeService) Close() error { close(s.events); return nil }

func recvEvent(t *testing.T, ch chan Event, d time.Duration) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(d):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func errKind(t *testing.T, ev Event) ErrorKind {
	t.Helper()
	rf, ok := ev.(RequestFailed)
	if !ok {
		t.Fatalf("expected RequestFailed, got %T (%+v)", ev, ev)
	}
	rrErr, ok := rf.Err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", rf.Err)
	}
	return rrErr.Kind
}

// TestTimeout is scenario 2: the peer is connected, the remote accepts the
// substream and never replies; the response must fail with Timeout inside
// the configured window.
func TestTimeout(t *testing.T) {
	self, _ := peer.NewIdentity()
	other, _ := peer.NewIdentity()
	svc := newFakeService(self.ID())
	svc.openFn = func(ctx context.Context, p peer.ID, proto peer.ProtocolName) (transport.SubstreamID, error) {
		local, remote := transport.NewMemSubstreamPair()
		// Remote accepts the request frame (draining the pipe so the send
		// doesn't block) but never answers: a silent peer.
		go func() { _, _ = remote.Recv(context.Background()) }()
		svc.events <- transport.Event{Kind: transport.EvSubstreamOpened, Peer: p, Stream: 1, Direction: transport.DirOutbound, Substream: local}
		return 1, nil
	}

	cmds := make(chan Command, 4)
	evs := make(chan Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := NewEngine(svc, self.ID(), testProto, 100*time.Millisecond, svc.Events(), cmds, evs, nil)
	go eng.Run(ctx)

	svc.events <- transport.Event{Kind: transport.EvConnectionEstablished, Peer: other.ID()}
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	cmds <- SendRequest{Peer: other.ID(), RequestID: 1, Payload: []byte{0x01}, DialOpt: Reject}

	ev := recvEvent(t, evs, time.Second)
	elapsed := time.Since(start)
	if k := errKind(t, ev); k != Timeout {
		t.Fatalf("expected Timeout, got %v", k)
	}
	if elapsed < 100*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Fatalf("timeout fired outside expected window: %s", elapsed)
	}
}

// TestCancelBeforeResponse is scenario 3.
func TestCancelBeforeResponse(t *testing.T) {
	self, _ := peer.NewIdentity()
	other, _ := peer.NewIdentity()
	svc := newFakeService(self.ID())
	svc.openFn = func(ctx context.Context, p peer.ID, proto peer.ProtocolName) (transport.SubstreamID, error) {
		local, remote := transport.NewMemSubstreamPair()
		go func() { _, _ = remote.Recv(context.Background()) }()
		svc.events <- transport.Event{Kind: transport.EvSubstreamOpened, Peer: p, Stream: 1, Direction: transport.DirOutbound, Substream: local}
		return 1, nil
	}

	cmds := make(chan Command, 4)
	evs := make(chan Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := NewEngine(svc, self.ID(), testProto, 5*time.Second, svc.Events(), cmds, evs, nil)
	go eng.Run(ctx)

	svc.events <- transport.Event{Kind: transport.EvConnectionEstablished, Peer: other.ID()}
	time.Sleep(10 * time.Millisecond)

	cmds <- SendRequest{Peer: other.ID(), RequestID: 2, Payload: []byte{0x02}, DialOpt: Reject}
	time.Sleep(10 * time.Millisecond)
	cmds <- CancelRequest{RequestID: 2}

	ev := recvEvent(t, evs, time.Second)
	if k := errKind(t, ev); k != Canceled {
		t.Fatalf("expected Canceled, got %v", k)
	}
}

// TestDialFailure is scenario 4: pending_dials must end up empty too,
// which here is an internal invariant we can only observe indirectly
// through the lack of any duplicate or late event.
func TestDialFailure(t *testing.T) {
	self, _ := peer.NewIdentity()
	other, _ := peer.NewIdentity()
	svc := newFakeService(self.ID())
	svc.dialFn = func(ctx context.Context, p peer.ID) error {
		go func() { svc.events <- transport.Event{Kind: transport.EvDialFailure, Peer: p, Err: fmt.Errorf("no route")} }()
		return nil
	}

	cmds := make(chan Command, 4)
	evs := make(chan Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := NewEngine(svc, self.ID(), testProto, time.Second, svc.Events(), cmds, evs, nil)
	go eng.Run(ctx)

	cmds <- SendRequest{Peer: other.ID(), RequestID: 3, Payload: nil, DialOpt: Dial}

	ev := recvEvent(t, evs, time.Second)
	if k := errKind(t, ev); k != Rejected {
		t.Fatalf("expected Rejected, got %v", k)
	}
}

// TestConnectionDropWithInFlightRequest is scenario 5: a connection is
// torn down while a request is outstanding, before any frame exchange.
func TestConnectionDropWithInFlightRequest(t *testing.T) {
	self, _ := peer.NewIdentity()
	other, _ := peer.NewIdentity()
	svc := newFakeService(self.ID())
	svc.openFn = func(ctx context.Context, p peer.ID, proto peer.ProtocolName) (transport.SubstreamID, error) {
		// Never actually opens: the connection drops before this resolves.
		return 1, nil
	}

	cmds := make(chan Command, 4)
	evs := make(chan Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := NewEngine(svc, self.ID(), testProto, time.Second, svc.Events(), cmds, evs, nil)
	go eng.Run(ctx)

	svc.events <- transport.Event{Kind: transport.EvConnectionEstablished, Peer: other.ID()}
	time.Sleep(10 * time.Millisecond)

	cmds <- SendRequest{Peer: other.ID(), RequestID: 4, Payload: []byte{0x04}, DialOpt: Reject}
	time.Sleep(10 * time.Millisecond)

	svc.events <- transport.Event{Kind: transport.EvConnectionClosed, Peer: other.ID()}

	ev := recvEvent(t, evs, time.Second)
	if k := errKind(t, ev); k != Rejected {
		t.Fatalf("expected Rejected, got %v", k)
	}
}

// --- scenarios exercised end to end over the loopback quic fabric --------

type pairHarness struct {
	idA, idB *peer.Identity
	mgrA     *quicfabric.Manager
	cmdA, cmdB chan Command
	evA, evB   chan Event
	cancel     context.CancelFunc
}

func newPairHarness(t *testing.T) *pairHarness {
	t.Helper()
	idA, err := peer.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	idB, err := peer.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}

	fabric := quicfabric.NewFabric()
	mgrA := quicfabric.NewManager(fabric, idA, "/ip4/127.0.0.1/udp/4001/quic-v1", quicfabric.Options{})
	mgrB := quicfabric.NewManager(fabric, idB, "/ip4/127.0.0.1/udp/4002/quic-v1", quicfabric.Options{})

	dispA := transport.NewDispatcher(mgrA)
	dispB := transport.NewDispatcher(mgrB)

	cmdA := make(chan Command, 8)
	cmdB := make(chan Command, 8)
	evA := make(chan Event, 8)
	evB := make(chan Event, 8)

	ctx, cancel := context.WithCancel(context.Background())

	engineA := NewEngine(mgrA, idA.ID(), testProto, time.Second, dispA.Subscribe(testProto, 16), cmdA, evA, nil)
	engineB := NewEngine(mgrB, idB.ID(), testProto, time.Second, dispB.Subscribe(testProto, 16), cmdB, evB, nil)
	go engineA.Run(ctx)
	go engineB.Run(ctx)

	h := &pairHarness{idA: idA, idB: idB, mgrA: mgrA, cmdA: cmdA, cmdB: cmdB, evA: evA, evB: evB, cancel: cancel}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), time.Second)
	defer dialCancel()
	if err := mgrA.Dial(dialCtx, idB.ID()); err != nil {
		t.Fatalf("dial: %s", err)
	}
	time.Sleep(30 * time.Millisecond)
	return h
}

// TestHappyPathRequest is scenario 1.
func TestHappyPathRequest(t *testing.T) {
	h := newPairHarness(t)
	defer h.cancel()

	go func() {
		ev := recvEvent(t, h.evB, time.Second)
		rr, ok := ev.(RequestReceived)
		if !ok {
			t.Errorf("expected RequestReceived, got %T", ev)
			return
		}
		h.cmdB <- SendResponse{RequestID: rr.RequestID, Payload: []byte{0xBB}}
	}()

	h.cmdA <- SendRequest{Peer: h.idB.ID(), RequestID: 1, Payload: []byte{0xAA}, DialOpt: Reject}

	ev := recvEvent(t, h.evA, time.Second)
	rr, ok := ev.(ResponseReceived)
	if !ok {
		t.Fatalf("expected ResponseReceived, got %T (%v)", ev, ev)
	}
	if rr.RequestID != 1 || len(rr.Response) != 1 || rr.Response[0] != 0xBB {
		t.Fatalf("unexpected response: %+v", rr)
	}
}

// TestInboundRequestAndResponse is scenario 6.
func TestInboundRequestAndResponse(t *testing.T) {
	h := newPairHarness(t)
	defer h.cancel()

	h.cmdB <- SendRequest{Peer: h.idA.ID(), RequestID: 6, Payload: []byte{0x01}, DialOpt: Reject}

	ev := recvEvent(t, h.evA, time.Second)
	rr, ok := ev.(RequestReceived)
	if !ok {
		t.Fatalf("expected RequestReceived, got %T", ev)
	}
	if len(rr.Request) != 1 || rr.Request[0] != 0x01 {
		t.Fatalf("unexpected request payload: %v", rr.Request)
	}

	h.cmdA <- SendResponse{RequestID: rr.RequestID, Payload: []byte{0x02}}

	ev2 := recvEvent(t, h.evB, time.Second)
	resp, ok := ev2.(ResponseReceived)
	if !ok {
		t.Fatalf("expected ResponseReceived, got %T", ev2)
	}
	if len(resp.Response) != 1 || resp.Response[0] != 0x02 {
		t.Fatalf("unexpected response payload: %v", resp.Response)
	}
}
