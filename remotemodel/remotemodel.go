// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package remotemodel replicates a hierarchical, multi-column tabular model
// from a server process to one or more client replicas over a byte-stream
// transport.
//
// The server owns an authoritative in-memory tree of cells addressed by
// (row, column, parent). A client exposes a local replica that answers
// structural queries (row/column counts, parent/child navigation) from its
// own mirror, and routes value-level queries (cell data, header data, role
// names, flags, fetch hints) to the server as synchronous calls correlated
// by a per-call UUID. The server pushes change notifications to every
// connected client so each replica stays consistent as the authoritative
// model mutates.
package remotemodel

// DefaultPort is the canonical TCP port for the remote model protocol.
const DefaultPort = 7174

// DefaultMaxFrameSize caps the length field of a frame header, i.e. the
// size of the compressed payload on the wire. Frames larger than this are
// rejected with ErrOversizeFrame.
const DefaultMaxFrameSize = 64 << 20 // 64 MiB

// MessageKind identifies the three record shapes carried in a frame payload.
type MessageKind uint8

const (
	KindMethodCall   MessageKind = 1
	KindMethodReturn MessageKind = 2
	KindEmitSignal   MessageKind = 3
)

func (k MessageKind) String() string {
	switch k {
	case KindMethodCall:
		return "MethodCall"
	case KindMethodReturn:
		return "MethodReturn"
	case KindEmitSignal:
		return "EmitSignal"
	default:
		return "Unknown"
	}
}
