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

// Package transport defines the substream and transport-service
// abstractions that the request/response engine (package reqresp) and the
// notification connection driver (package notify) are built on. Framing is
// opaque to both of those packages: a Substream exchanges whole frames,
// never partial ones, and closing is idempotent and terminal.
package transport

import (
	"context"
	"errors"
	"io"
)

// SendErrorKind classifies why a framed send failed, mirroring the
// {PermissionDenied/PayloadTooLarge, Io, Closed} taxonomy consumers need to
// distinguish (a too-large payload maps to a different RequestResponseError
// than a plain I/O failure does).
type SendErrorKind int

const (
	// SendErrIO is a generic transport-level send failure.
	SendErrIO SendErrorKind = iota
	// SendErrTooLarge means the substream refused the frame for size reasons.
	SendErrTooLarge
	// SendErrClosed means the substream was already closed.
	SendErrClosed
)

// SendError is returned by Substream.SendFramed.
type SendError struct {
	Kind SendErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// NewSendError wraps a lower-level error with a classification.
func NewSendError(kind SendErrorKind, err error) *SendError {
	return &SendError{Kind: kind, Err: err}
}

// ErrSubstreamClosed is wrapped into a SendErrClosed SendError by
// SendFramed once the substream has been closed locally.
var ErrSubstreamClosed = errors.New("substream: closed")

// Substream is a framed, bidirectional byte-message channel handed out by
// a Service. It is singly owned: at any moment it lives in exactly one
// engine table or one in-flight future, never both (see package reqresp).
type Substream interface {
	// SendFramed writes one complete frame. Once Close has been called,
	// every subsequent SendFramed fails with a SendError{Kind: SendErrClosed}.
	SendFramed(ctx context.Context, frame []byte) error

	// Recv blocks for the next frame. It returns (nil, io.EOF) on an
	// orderly remote close, and (nil, err) for any other read failure;
	// once either has happened, every subsequent Recv repeats it.
	Recv(ctx context.Context) ([]byte, error)

	// Close is idempotent and terminal. After Close, SendFramed fails and
	// Recv yields io.EOF.
	Close() error
}

// substream error helper shared by concrete implementations: turns a
// plain io error into the typed variant the engines switch on.
func classifySendErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSubstreamClosed) || errors.Is(err, io.ErrClosedPipe) {
		return NewSendError(SendErrClosed, err)
	}
	return NewSendError(SendErrIO, err)
}
