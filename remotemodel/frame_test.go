// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	fr := NewFrameReader(&buf, 0)

	payloads := [][]byte{
		[]byte("hello"),
		bytes.Repeat([]byte("x"), 4096),
	}
	for _, p := range payloads {
		if err := fw.WriteFrame(p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for _, p := range payloads {
		got, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("ReadFrame = %d bytes, want %d bytes", len(got), len(p))
		}
	}
}

func TestFrameReaderZeroLength(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	fr := NewFrameReader(buf, 0)
	payload, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v, want nil", err)
	}
	if len(payload) != 0 {
		t.Errorf("ReadFrame() payload = %v, want empty", payload)
	}
	if _, err := Decode(payload); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Decode(empty) error = %v, want ErrMalformedFrame", err)
	}
}

func TestFrameReaderOversize(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10})
	fr := NewFrameReader(buf, 4)
	_, err := fr.ReadFrame()
	if !errors.Is(err, ErrOversizeFrame) {
		t.Fatalf("ReadFrame() error = %v, want ErrOversizeFrame", err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10, 1, 2, 3})
	fr := NewFrameReader(buf, 0)
	_, err := fr.ReadFrame()
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("ReadFrame() error = %v, want ErrTruncatedFrame", err)
	}
}

func TestFrameReaderClosedAtHeader(t *testing.T) {
	r := strings.NewReader("")
	fr := NewFrameReader(r, 0)
	_, err := fr.ReadFrame()
	if !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("ReadFrame() error = %v, want ErrTransportClosed", err)
	}
}

func TestCompressPayloadFallsBackToStore(t *testing.T) {
	raw := []byte("a")
	compressed, err := compressPayload(raw)
	if err != nil {
		t.Fatalf("compressPayload: %v", err)
	}
	if compressed[0] != compressionStore {
		t.Errorf("compressPayload method = %d, want compressionStore (%d)", compressed[0], compressionStore)
	}
	got, err := decompressPayload(compressed)
	if err != nil {
		t.Fatalf("decompressPayload: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("decompressPayload = %v, want %v", got, raw)
	}
}
