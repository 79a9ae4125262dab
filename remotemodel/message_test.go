// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"reflect"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	cases := []Message{
		NewMethodCall("rowCount", []Variant{IndexPath{}.ToVariant()}),
		NewMethodReturn(NewMethodCall("x", nil).ID, Int32Variant(4)),
		NewEmitSignal("rowsInserted", []Variant{IndexPath{}.ToVariant(), Int32Variant(0), Int32Variant(3)}),
	}
	for _, want := range cases {
		payload, err := Encode(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode(payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestDecodeMessageTooShort(t *testing.T) {
	if _, err := Decode([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected error decoding short payload")
	}
}

func TestDecodeMessageUnknownKind(t *testing.T) {
	msg := NewMethodCall("x", nil)
	payload, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload[16] = 0x77
	if _, err := Decode(payload); err == nil {
		t.Fatal("expected error decoding unknown message kind")
	}
}
