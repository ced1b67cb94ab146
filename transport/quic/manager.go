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

// Package quic provides a loopback transport.Service: peers register with
// a shared in-process Fabric keyed by peer id, and Dial/OpenSubstream
// resolve against that registry instead of a real QUIC/UDP socket. Dial
// still performs a real ECDH handshake (crypto.SharedSecret plus HKDF)
// between the two identities so a connection carries genuine per-
// direction session keys, even though the bytes never cross a socket. A
// real QUIC implementation would replace this Manager's Dial/
// OpenSubstream bodies with quic-go session and stream negotiation while
// keeping the Service contract and event shapes identical; wiring an
// actual UDP socket is explicitly out of scope here (see the module's
// design notes).
package quic

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bfix/gospel/logger"

	"p2pcore/crypto"
	"p2pcore/peer"
	"p2pcore/transport"
)

// Options carries the config.QUICConfig knobs that shape a Manager's
// behavior. MaxSubstreams caps how many substreams may be open at once
// per connection (0 means unlimited, the zero value); KeepAlive sets
// the interval of a periodic EvKeepAlive emitted per connection (0
// disables it).
type Options struct {
	MaxSubstreams int
	KeepAlive     time.Duration
}

// Fabric is the shared registry a set of loopback Managers dial into. It
// stands in for the UDP/IP layer real QUIC sockets would use: Managers
// "listen" by registering their multiaddress, and Dial looks the target
// up the same way a real resolver would look up a route.
type Fabric struct {
	mu        sync.Mutex
	byAddr    map[string]*Manager
	byPeer    map[peer.ID]*Manager
}

// NewFabric creates an empty loopback fabric. Tests and demo cmd/ programs
// share one Fabric across every Manager that should be able to reach
// each other.
func NewFabric() *Fabric {
	return &Fabric{
		byAddr: make(map[string]*Manager),
		byPeer: make(map[peer.ID]*Manager),
	}
}

func (f *Fabric) register(m *Manager) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byAddr[m.listenAddr] = m
	f.byPeer[m.local] = m
}

func (f *Fabric) unregister(m *Manager) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byAddr, m.listenAddr)
	delete(f.byPeer, m.local)
}

func (f *Fabric) lookupPeer(p peer.ID) (*Manager, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byPeer[p]
	return m, ok
}

// connState tracks one peer-to-peer connection from this Manager's side,
// including the session keys derived at Dial time: a real QUIC
// implementation would hand these to its TLS stack instead of storing
// them here.
type connState struct {
	id         transport.ConnectionID
	remote     *Manager
	keys       *crypto.SessionKeys
	substreams atomic.Int32 // currently open substreams, capped by Options.MaxSubstreams
}

// Manager is a transport.Service backed by a Fabric. It keeps no real
// sockets open: every "connection" is just a reference to the peer
// Manager on the other end, and every substream is a memSubstream pair.
type Manager struct {
	identity   *peer.Identity
	local      peer.ID
	listenAddr string
	fabric     *Fabric
	opts       Options

	events chan transport.Event

	nextConn   uint64
	nextStream uint64

	mu    sync.Mutex
	conns map[peer.ID]*connState
	// inbox delivers substream-open requests from a remote Manager's
	// OpenSubstream call; run() turns each into this side's DirInbound
	// EvSubstreamOpened (the opener emits its own DirOutbound event).
	inbox chan inboundOpen
	done  chan struct{}
}

type inboundOpen struct {
	from  peer.ID
	proto peer.ProtocolName
	local transport.Substream
}

// NewManager creates a Manager bound to listenAddr (a QUIC multiaddress
// string, validated with transport.ParseQuicAddr by callers) and
// registers it with fabric so other Managers can Dial it. identity
// carries the private key Dial needs to derive per-connection session
// keys; only its public ID is ever handed out. opts.MaxSubstreams and
// opts.KeepAlive come straight from config.QUICConfig; pass the zero
// Options to leave both disabled.
func NewManager(fabric *Fabric, identity *peer.Identity, listenAddr string, opts Options) *Manager {
	m := &Manager{
		identity:   identity,
		local:      identity.ID(),
		listenAddr: listenAddr,
		fabric:     fabric,
		opts:       opts,
		events:     make(chan transport.Event, 64),
		conns:      make(map[peer.ID]*connState),
		inbox:      make(chan inboundOpen, 16),
		done:       make(chan struct{}),
	}
	fabric.register(m)
	go m.run()
	if opts.KeepAlive > 0 {
		go m.keepAliveLoop(opts.KeepAlive)
	}
	return m
}

// keepAliveLoop emits an EvKeepAlive for every established connection
// once per interval, until Close is called.
func (m *Manager) keepAliveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			conns := make([]connKeepAlive, 0, len(m.conns))
			for p, cs := range m.conns {
				conns = append(conns, connKeepAlive{peer: p, conn: cs.id})
			}
			m.mu.Unlock()
			for _, c := range conns {
				m.emit(transport.Event{Kind: transport.EvKeepAlive, Peer: c.peer, Conn: c.conn})
			}
		case <-m.done:
			return
		}
	}
}

type connKeepAlive struct {
	peer peer.ID
	conn transport.ConnectionID
}

// SessionKeys returns the session keys derived for an established
// connection to p, for diagnostics or a caller that wants to bind its
// own framing to the handshake (false if no such connection exists).
func (m *Manager) SessionKeys(p peer.ID) (*crypto.SessionKeys, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.conns[p]
	if !ok {
		return nil, false
	}
	return cs.keys, true
}

func (m *Manager) run() {
	for {
		select {
		case req, ok := <-m.inbox:
			if !ok {
				return
			}
			m.mu.Lock()
			cs, known := m.conns[req.from]
			m.mu.Unlock()
			if !known {
				logger.Printf(logger.WARN, "[quic] substream open from unconnected peer %s", req.from.Short())
				continue
			}
			m.emit(transport.Event{
				Kind:      transport.EvSubstreamOpened,
				Peer:      req.from,
				Conn:      cs.id,
				Stream:    transport.SubstreamID(atomic.AddUint64(&m.nextStream, 1)),
				Protocol:  req.proto,
				Direction: transport.DirInbound,
				Substream: req.local,
			})
		case <-m.done:
			return
		}
	}
}

func (m *Manager) emit(ev transport.Event) {
	select {
	case m.events <- ev:
	default:
		logger.Printf(logger.ERROR, "[quic] event channel full for peer %s, dropping %v", m.local.Short(), ev.Kind)
	}
}

// LocalPeer implements transport.Service.
func (m *Manager) LocalPeer() peer.ID { return m.local }

// Events implements transport.Service.
func (m *Manager) Events() <-chan transport.Event { return m.events }

// Dial implements transport.Service. Peer-address resolution is out of
// scope (see package doc); the loopback Fabric instead looks the peer up
// by id directly, the way a real implementation would after a separate
// address-book lookup. The connection record is established on both
// sides synchronously but the outcome is still reported as an Event, to
// keep the call itself non-blocking from the caller's perspective.
func (m *Manager) Dial(ctx context.Context, p peer.ID) error {
	remote, ok := m.fabric.lookupPeer(p)
	if !ok {
		go m.emit(transport.Event{
			Kind: transport.EvDialFailure,
			Peer: p,
			Err:  fmt.Errorf("quic: peer %s not reachable", p.Short()),
		})
		return nil
	}

	secret, err := m.identity.SharedSecret(p)
	if err != nil {
		go m.emit(transport.Event{
			Kind: transport.EvDialFailure,
			Peer: p,
			Err:  fmt.Errorf("quic: handshake failed: %w", err),
		})
		return nil
	}
	remoteSecret, err := remote.identity.SharedSecret(m.local)
	if err != nil {
		go m.emit(transport.Event{
			Kind: transport.EvDialFailure,
			Peer: p,
			Err:  fmt.Errorf("quic: peer handshake failed: %w", err),
		})
		return nil
	}
	keys := crypto.DeriveSessionKeys(secret, true)
	remoteKeys := crypto.DeriveSessionKeys(remoteSecret, false)

	connID := transport.ConnectionID(atomic.AddUint64(&m.nextConn, 1))
	m.mu.Lock()
	m.conns[p] = &connState{id: connID, remote: remote, keys: keys}
	m.mu.Unlock()

	remoteConnID := transport.ConnectionID(atomic.AddUint64(&remote.nextConn, 1))
	remote.mu.Lock()
	remote.conns[m.local] = &connState{id: remoteConnID, remote: m, keys: remoteKeys}
	remote.mu.Unlock()

	logger.Printf(logger.DBG, "[quic] handshake complete with %s", p.Short())

	go m.emit(transport.Event{Kind: transport.EvConnectionEstablished, Peer: p, Conn: connID})
	go remote.emit(transport.Event{Kind: transport.EvConnectionEstablished, Peer: m.local, Conn: remoteConnID})
	return nil
}

// OpenSubstream implements transport.Service. The local end is reported
// back to the caller as its own EvSubstreamOpened (DirOutbound); the peer
// end is delivered through its inbox as DirInbound. The SubstreamID is
// assigned and returned before either event is emitted, so a caller that
// records pendingOutbound[id] before the event arrives can never miss it.
func (m *Manager) OpenSubstream(ctx context.Context, p peer.ID, proto peer.ProtocolName) (transport.SubstreamID, error) {
	streamID := transport.SubstreamID(atomic.AddUint64(&m.nextStream, 1))

	m.mu.Lock()
	cs, known := m.conns[p]
	m.mu.Unlock()
	if !known {
		go m.emit(transport.Event{
			Kind:     transport.EvSubstreamOpenFailure,
			Peer:     p,
			Stream:   streamID,
			Protocol: proto,
			Err:      fmt.Errorf("quic: not connected to %s", p.Short()),
		})
		return streamID, nil
	}

	if max := m.opts.MaxSubstreams; max > 0 && cs.substreams.Load() >= int32(max) {
		go m.emit(transport.Event{
			Kind:     transport.EvSubstreamOpenFailure,
			Peer:     p,
			Stream:   streamID,
			Protocol: proto,
			Err:      fmt.Errorf("quic: substream limit (%d) reached for %s", max, p.Short()),
		})
		return streamID, nil
	}
	cs.substreams.Add(1)

	localEnd, remoteEnd := transport.NewMemSubstreamPair()
	localEnd = &countedSubstream{Substream: localEnd, count: &cs.substreams}

	go func() {
		m.emit(transport.Event{
			Kind:      transport.EvSubstreamOpened,
			Peer:      p,
			Conn:      cs.id,
			Stream:    streamID,
			Protocol:  proto,
			Direction: transport.DirOutbound,
			Substream: localEnd,
		})
		select {
		case cs.remote.inbox <- inboundOpen{from: m.local, proto: proto, local: remoteEnd}:
		case <-ctx.Done():
		}
	}()
	return streamID, nil
}

// countedSubstream decrements a connection's open-substream count
// exactly once when closed, so Options.MaxSubstreams enforces a cap on
// substreams genuinely open at once rather than ever opened.
type countedSubstream struct {
	transport.Substream
	count *atomic.Int32
	once  sync.Once
}

func (s *countedSubstream) Close() error {
	s.once.Do(func() { s.count.Add(-1) })
	return s.Substream.Close()
}

// Close implements transport.Service by unregistering from the Fabric
// and closing the event stream. Connection records are not torn down:
// no EvConnectionClosed is emitted on either side, and remote Managers
// keep their record of this peer.
func (m *Manager) Close() error {
	m.fabric.unregister(m)
	close(m.done)
	close(m.events)
	return nil
}
