// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// Compression method bytes prefixing a frame's compressed_payload, ahead of
// the 4-byte uncompressed-size field. Grounded on the compressed-block
// framing used by syncthing's wire protocol (prefix the uncompressed size,
// store a literal copy when lz4 cannot shrink the block).
const (
	compressionStore byte = 0
	compressionLZ4   byte = 1
)

// compressPayload wraps raw in the frame's compressed_payload encoding:
// method byte || uncompressed-size:u32 || block data.
func compressPayload(raw []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(raw))
	dst := make([]byte, 5+bound)
	var table [1 << 16]int
	n, err := lz4.CompressBlock(raw, dst[5:], table[:])
	if err != nil {
		return nil, fmt.Errorf("remotemodel: lz4 compress: %w", err)
	}
	if n == 0 || n >= len(raw) {
		stored := make([]byte, 5+len(raw))
		stored[0] = compressionStore
		binary.BigEndian.PutUint32(stored[1:5], uint32(len(raw)))
		copy(stored[5:], raw)
		return stored, nil
	}
	dst[0] = compressionLZ4
	binary.BigEndian.PutUint32(dst[1:5], uint32(len(raw)))
	return dst[:5+n], nil
}

// decompressPayload reverses compressPayload. A zero-length b (an empty
// frame on the wire) decodes to an empty payload rather than a malformed-
// frame error; it is up to the message layer to reject an empty payload if
// it can't be a valid message (§8 Boundaries).
func decompressPayload(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) < 5 {
		return nil, fmt.Errorf("remotemodel: %w: short compressed payload", ErrMalformedFrame)
	}
	method := b[0]
	size := binary.BigEndian.Uint32(b[1:5])
	switch method {
	case compressionStore:
		if uint32(len(b)-5) != size {
			return nil, fmt.Errorf("remotemodel: %w: stored size mismatch", ErrMalformedFrame)
		}
		out := make([]byte, size)
		copy(out, b[5:])
		return out, nil
	case compressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(b[5:], out)
		if err != nil {
			return nil, fmt.Errorf("remotemodel: lz4 decompress: %w", err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("remotemodel: %w: unknown compression method %d", ErrMalformedFrame, method)
	}
}

// FrameReader reassembles length-prefixed, compressed records from a byte
// stream (§4.2). It is strictly stateful per connection and must not be
// shared across goroutines.
type FrameReader struct {
	r      *bufio.Reader
	maxLen uint32
}

// NewFrameReader wraps r. maxLen of 0 selects DefaultMaxFrameSize.
func NewFrameReader(r io.Reader, maxLen uint32) *FrameReader {
	if maxLen == 0 {
		maxLen = DefaultMaxFrameSize
	}
	return &FrameReader{r: bufio.NewReader(r), maxLen: maxLen}
}

// ReadFrame blocks for the next frame and returns its decompressed payload.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(f.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, ErrTransportClosed
		}
		if err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: reading length header: %v", ErrTransportClosed, err)
		}
		return nil, fmt.Errorf("remotemodel: %w: reading length header: %v", ErrTruncatedFrame, err)
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length > f.maxLen {
		return nil, newProtocolError(fmt.Errorf("%w: %d bytes exceeds cap %d", ErrOversizeFrame, length, f.maxLen))
	}
	compressed := make([]byte, length)
	if _, err := io.ReadFull(f.r, compressed); err != nil {
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: reading payload: %v", ErrTransportClosed, err)
		}
		return nil, fmt.Errorf("remotemodel: %w: reading payload: %v", ErrTruncatedFrame, err)
	}
	payload, err := decompressPayload(compressed)
	if err != nil {
		return nil, newProtocolError(err)
	}
	return payload, nil
}

// FrameWriter emits length-prefixed, compressed records. Writes are
// serialized so that a frame header and its payload are always written as
// one logical unit; concurrent callers never interleave (§4.2).
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame compresses raw and writes the length-prefixed record.
func (f *FrameWriter) WriteFrame(raw []byte) error {
	compressed, err := compressPayload(raw)
	if err != nil {
		return err
	}
	if uint32(len(compressed)) > DefaultMaxFrameSize {
		return fmt.Errorf("remotemodel: %w: %d bytes", ErrOversizeFrame, len(compressed))
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(compressed)))

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = f.w.Write(compressed)
	return err
}
