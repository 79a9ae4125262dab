// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Message is the decoded form of one frame payload: a uuid, a kind tag, and
// a kind-specific body (§4.1).
type Message struct {
	ID   uuid.UUID
	Kind MessageKind

	// MethodCall body.
	MethodName string
	Args       []Variant

	// MethodReturn body.
	ReturnValue Variant

	// EmitSignal body.
	SignalName string
	// EmitSignal reuses Args for its argument list.
}

// NewMethodCall builds a MethodCall message with a fresh random id.
func NewMethodCall(method string, args []Variant) Message {
	return Message{ID: uuid.New(), Kind: KindMethodCall, MethodName: method, Args: args}
}

// NewMethodReturn builds a MethodReturn answering the call with id.
func NewMethodReturn(id uuid.UUID, value Variant) Message {
	return Message{ID: id, Kind: KindMethodReturn, ReturnValue: value}
}

// NewEmitSignal builds an EmitSignal message. Broadcast signals do not
// correlate to a call, but every message still carries a uuid on the wire;
// a fresh one is minted per broadcast.
func NewEmitSignal(name string, args []Variant) Message {
	return Message{ID: uuid.New(), Kind: KindEmitSignal, SignalName: name, Args: args}
}

// Encode serializes m as a frame payload: uuid || kind || body (§4.1).
func Encode(m Message) ([]byte, error) {
	var buf bytes.Buffer
	idBytes, err := m.ID.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("remotemodel: encode message: %w", err)
	}
	buf.Write(idBytes)
	buf.WriteByte(byte(m.Kind))

	switch m.Kind {
	case KindMethodCall:
		writeLenBytes(&buf, []byte(m.MethodName))
		if err := encodeVariantList(&buf, m.Args); err != nil {
			return nil, err
		}
	case KindMethodReturn:
		if err := EncodeVariant(&buf, m.ReturnValue); err != nil {
			return nil, err
		}
	case KindEmitSignal:
		writeLenBytes(&buf, []byte(m.SignalName))
		if err := encodeVariantList(&buf, m.Args); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("remotemodel: encode message: %w: %d", ErrUnknownMessageKind, m.Kind)
	}
	return buf.Bytes(), nil
}

// Decode parses a frame payload produced by Encode.
func Decode(payload []byte) (Message, error) {
	if len(payload) < 17 {
		return Message{}, fmt.Errorf("remotemodel: decode message: %w: too short", ErrMalformedFrame)
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(payload[:16]); err != nil {
		return Message{}, fmt.Errorf("remotemodel: decode message: %w: %v", ErrMalformedFrame, err)
	}
	kind := MessageKind(payload[16])
	r := bytes.NewReader(payload[17:])

	m := Message{ID: id, Kind: kind}
	switch kind {
	case KindMethodCall:
		nameBytes, err := readLenBytes(r)
		if err != nil {
			return Message{}, err
		}
		m.MethodName = string(nameBytes)
		args, err := decodeVariantList(r)
		if err != nil {
			return Message{}, err
		}
		m.Args = args
	case KindMethodReturn:
		v, err := DecodeVariant(r)
		if err != nil {
			return Message{}, err
		}
		m.ReturnValue = v
	case KindEmitSignal:
		nameBytes, err := readLenBytes(r)
		if err != nil {
			return Message{}, err
		}
		m.SignalName = string(nameBytes)
		args, err := decodeVariantList(r)
		if err != nil {
			return Message{}, err
		}
		m.Args = args
	default:
		return Message{}, fmt.Errorf("remotemodel: decode message: %w: %d", ErrUnknownMessageKind, kind)
	}
	return m, nil
}
