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

// Package kademlia declares the wire-agnostic message shapes a Kademlia-
// style DHT protocol would drive over the request/response engine. No
// routing table, bucket management, or lookup algorithm lives here - the
// module's core is the engine that multiplexes these messages over
// substreams, not the DHT itself. Struct tags follow the
// github.com/bfix/gospel/data marshaling convention so a real DHT
// protocol package can marshal these directly.
package kademlia

import "p2pcore/peer"

// MsgType is the wire type code carried by every message below.
type MsgType uint16

const (
	// TypePutValue stores a record at the queried peer.
	TypePutValue MsgType = 0
	// TypeGetValue requests a record by key.
	TypeGetValue MsgType = 1
	// TypeFindNode requests the peers closest to a target id.
	TypeFindNode MsgType = 4
)

// ClusterLevelRaw is carried unchanged on every message in this
// taxonomy; the module does not interpret cluster levels, it only
// preserves the field for a real DHT protocol layered on top.
const ClusterLevelRaw uint32 = 10

// Header is embedded in every message of this taxonomy.
type Header struct {
	Type            MsgType `order:"big"`
	ClusterLevelRaw uint32  `order:"big"`
}

func newHeader(t MsgType) Header {
	return Header{Type: t, ClusterLevelRaw: ClusterLevelRaw}
}

// PeerAddr pairs a peer id with its opaque transport address bytes (a
// serialized multiaddress); parsing those bytes is transport.ParseQuicAddr's
// job, not this package's.
type PeerAddr struct {
	ID      peer.ID
	NumAddr uint16 `order:"big"`
	Addr    []byte `size:"NumAddr"`
}

// Record is the generic (key, value) pair the DHT stores and retrieves.
// No TTL or expiry is modeled; retention policy belongs to whatever
// storage layer backs a real DHT protocol.
type Record struct {
	KeyLen   uint16 `order:"big"`
	Key      []byte `size:"KeyLen"`
	ValueLen uint32 `order:"big"`
	Value    []byte `size:"ValueLen"`
}

// FindNodeRequest asks a peer for the nodes it knows closest to Target.
// Wire type 4.
type FindNodeRequest struct {
	Header
	Target peer.ID
}

// NewFindNodeRequest builds a FindNodeRequest for target.
func NewFindNodeRequest(target peer.ID) *FindNodeRequest {
	return &FindNodeRequest{Header: newHeader(TypeFindNode), Target: target}
}

// FindNodeResponse answers a FindNodeRequest with the peers the
// responder considers closest to the original target.
type FindNodeResponse struct {
	Header
	NumPeers    uint16 `order:"big"`
	CloserPeers []PeerAddr `size:"NumPeers"`
}

// NewFindNodeResponse builds a FindNodeResponse carrying peers.
func NewFindNodeResponse(peers []PeerAddr) *FindNodeResponse {
	return &FindNodeResponse{
		Header:      newHeader(TypeFindNode),
		NumPeers:    uint16(len(peers)),
		CloserPeers: peers,
	}
}

// PutValue stores rec at the receiving peer. The message-level key and
// rec.Key are always equal; the duplication mirrors the wire taxonomy
// this message shape is modeled on rather than a choice made here.
type PutValue struct {
	Header
	MessageKeyLen uint16 `order:"big"`
	MessageKey    []byte `size:"MessageKeyLen"`
	Record        Record
}

// NewPutValue builds a PutValue wrapping rec, with the message key set
// equal to rec.Key.
func NewPutValue(rec Record) *PutValue {
	return &PutValue{
		Header:        newHeader(TypePutValue),
		MessageKeyLen: rec.KeyLen,
		MessageKey:    rec.Key,
		Record:        rec,
	}
}

// GetValue requests the record stored under Key.
type GetValue struct {
	Header
	KeyLen uint16 `order:"big"`
	Key    []byte `size:"KeyLen"`
}

// NewGetValue builds a GetValue request for key.
func NewGetValue(key []byte) *GetValue {
	return &GetValue{Header: newHeader(TypeGetValue), KeyLen: uint16(len(key)), Key: key}
}

// GetRecordResponse answers a GetValue. HasRecord is false when the
// queried peer has no matching record; Peers carries closer peers to
// continue the lookup regardless of whether a record was found.
type GetRecordResponse struct {
	Header
	HasRecord bool
	Record    Record
	NumPeers  uint16 `order:"big"`
	Peers     []PeerAddr `size:"NumPeers"`
}

// NewGetRecordResponse builds a response carrying an optional record and
// the peers closer to the queried key.
func NewGetRecordResponse(rec *Record, peers []PeerAddr) *GetRecordResponse {
	r := &GetRecordResponse{
		Header:   newHeader(TypeGetValue),
		NumPeers: uint16(len(peers)),
		Peers:    peers,
	}
	if rec != nil {
		r.HasRecord = true
		r.Record = *rec
	}
	return r
}
