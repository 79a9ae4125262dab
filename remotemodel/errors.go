// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in the design notes.
//
// TransportClosed is returned to every caller with a pending request when
// the underlying socket is closed or reset. ProtocolError wraps a malformed
// frame, an unknown method/signal name, or a duplicate uuid, and is always
// fatal to the connection it was observed on.
var (
	ErrTransportClosed        = errors.New("remotemodel: transport closed")
	ErrMalformedFrame         = errors.New("remotemodel: malformed frame")
	ErrTruncatedFrame         = errors.New("remotemodel: truncated frame")
	ErrOversizeFrame          = errors.New("remotemodel: oversize frame")
	ErrUnknownMethod          = errors.New("remotemodel: unknown method")
	ErrUnknownSignal          = errors.New("remotemodel: unknown signal")
	ErrUnknownMessageKind     = errors.New("remotemodel: unknown message kind")
	ErrDuplicateRequestID     = errors.New("remotemodel: duplicate request id")
	ErrStateInvariantViolated = errors.New("remotemodel: state invariant violated")
)

// ProtocolError wraps a cause that is fatal to the connection it occurred
// on: a malformed frame, an unknown method or signal name, or a duplicate
// correlation id.
type ProtocolError struct {
	Cause error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("remotemodel: protocol error: %v", e.Cause)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

func newProtocolError(cause error) error {
	return &ProtocolError{Cause: cause}
}
