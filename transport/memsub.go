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
	"context"
	"errors"
	"io"
	"sync"
)

// memSubstream is an in-process Substream backed by a pair of io.Pipes,
// one per direction. It stands in for a real QUIC-negotiated substream in
// the loopback fabric (package transport/quic) and in unit tests: the
// framing and error-taxonomy behavior it exercises is exactly what a real
// substream must honor, only the wire is a pipe instead of a socket.
type memSubstream struct {
	rd *io.PipeReader
	wr *io.PipeWriter

	mu     sync.Mutex
	closed bool
}

// NewMemSubstreamPair returns two ends of one substream: frames written
// on a arrive on b's Recv and vice versa.
func NewMemSubstreamPair() (a, b Substream) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a = &memSubstream{rd: ar, wr: aw}
	b = &memSubstream{rd: br, wr: bw}
	return
}

func (s *memSubstream) SendFramed(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return NewSendError(SendErrClosed, ErrSubstreamClosed)
	}
	s.mu.Unlock()

	if len(frame) > MaxFrameSize {
		return NewSendError(SendErrTooLarge, ErrFrameTooLarge)
	}

	done := make(chan error, 1)
	go func() { done <- writeFrame(s.wr, frame) }()
	select {
	case err := <-done:
		if err != nil {
			return classifySendErr(err)
		}
		return nil
	case <-ctx.Done():
		return NewSendError(SendErrIO, ctx.Err())
	}
}

func (s *memSubstream) Recv(ctx context.Context) ([]byte, error) {
	type result struct {
		frame []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		frame, err := readFrame(s.rd)
		done <- result{frame, err}
	}()
	select {
	case r := <-done:
		if errors.Is(r.err, io.ErrClosedPipe) {
			// A locally closed substream reads as an orderly close.
			return nil, io.EOF
		}
		return r.frame, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memSubstream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.wr.Close()
	_ = s.rd.Close()
	return nil
}
