// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// VariantKind selects which field of a Variant is populated. The tag set is
// fixed by the wire protocol; adding a case here is a breaking change.
type VariantKind byte

const (
	VariantNull VariantKind = iota
	VariantInt32
	VariantInt64
	VariantBool
	VariantString
	VariantBytes
	VariantPoint
	VariantList
	VariantMap
)

// Point is a single (column, row) step of an IndexPath, or a standalone
// coordinate pair value.
type Point struct {
	X, Y int32
}

// Variant is the protocol's universal, self-describing data carrier.
type Variant struct {
	Kind VariantKind

	i32   int32
	i64   int64
	b     bool
	str   string
	bytes []byte
	point Point
	list  []Variant
	m     map[string]Variant
}

func NullVariant() Variant                 { return Variant{Kind: VariantNull} }
func Int32Variant(v int32) Variant         { return Variant{Kind: VariantInt32, i32: v} }
func Int64Variant(v int64) Variant         { return Variant{Kind: VariantInt64, i64: v} }
func BoolVariant(v bool) Variant           { return Variant{Kind: VariantBool, b: v} }
func StringVariant(v string) Variant       { return Variant{Kind: VariantString, str: v} }
func BytesVariant(v []byte) Variant        { return Variant{Kind: VariantBytes, bytes: v} }
func PointVariant(p Point) Variant         { return Variant{Kind: VariantPoint, point: p} }
func ListVariant(v []Variant) Variant      { return Variant{Kind: VariantList, list: v} }
func MapVariant(v map[string]Variant) Variant {
	return Variant{Kind: VariantMap, m: v}
}

func (v Variant) IsNull() bool { return v.Kind == VariantNull }

func (v Variant) Int32() (int32, bool) {
	if v.Kind != VariantInt32 {
		return 0, false
	}
	return v.i32, true
}

func (v Variant) Int64() (int64, bool) {
	if v.Kind != VariantInt64 {
		return 0, false
	}
	return v.i64, true
}

func (v Variant) Bool() (bool, bool) {
	if v.Kind != VariantBool {
		return false, false
	}
	return v.b, true
}

func (v Variant) String() (string, bool) {
	if v.Kind != VariantString {
		return "", false
	}
	return v.str, true
}

func (v Variant) Bytes() ([]byte, bool) {
	if v.Kind != VariantBytes {
		return nil, false
	}
	return v.bytes, true
}

func (v Variant) Point() (Point, bool) {
	if v.Kind != VariantPoint {
		return Point{}, false
	}
	return v.point, true
}

func (v Variant) List() ([]Variant, bool) {
	if v.Kind != VariantList {
		return nil, false
	}
	return v.list, true
}

func (v Variant) Map() (map[string]Variant, bool) {
	if v.Kind != VariantMap {
		return nil, false
	}
	return v.m, true
}

// writeLenBytes writes a u32 length prefix followed by the raw bytes of b.
func writeLenBytes(buf *bytes.Buffer, b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf.Write(n[:])
	buf.Write(b)
}

func readLenBytes(r *bytes.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := readFull(r, n[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(n[:])
	b := make([]byte, length)
	if length > 0 {
		if _, err := readFull(r, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n := 0
	for n < len(b) {
		m, err := r.Read(b[n:])
		n += m
		if err != nil {
			return n, fmt.Errorf("remotemodel: %w: %v", ErrMalformedFrame, err)
		}
	}
	return n, nil
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(v))
	buf.Write(n[:])
}

func readInt32(r *bytes.Reader) (int32, error) {
	var n [4]byte
	if _, err := readFull(r, n[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(n[:])), nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(v))
	buf.Write(n[:])
}

func readInt64(r *bytes.Reader) (int64, error) {
	var n [8]byte
	if _, err := readFull(r, n[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(n[:])), nil
}

// EncodeVariant writes v's tag byte followed by its encoded value.
func EncodeVariant(buf *bytes.Buffer, v Variant) error {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case VariantNull:
		// no body
	case VariantInt32:
		writeInt32(buf, v.i32)
	case VariantInt64:
		writeInt64(buf, v.i64)
	case VariantBool:
		if v.b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case VariantString:
		writeLenBytes(buf, []byte(v.str))
	case VariantBytes:
		writeLenBytes(buf, v.bytes)
	case VariantPoint:
		writeInt32(buf, v.point.X)
		writeInt32(buf, v.point.Y)
	case VariantList:
		return encodeVariantList(buf, v.list)
	case VariantMap:
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(v.m)))
		buf.Write(n[:])
		for _, k := range sortedMapKeys(v.m) {
			writeLenBytes(buf, []byte(k))
			if err := EncodeVariant(buf, v.m[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("remotemodel: encode variant: unknown kind %d", v.Kind)
	}
	return nil
}

func encodeVariantList(buf *bytes.Buffer, list []Variant) error {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(list)))
	buf.Write(n[:])
	for _, item := range list {
		if err := EncodeVariant(buf, item); err != nil {
			return err
		}
	}
	return nil
}

// sortedMapKeys returns m's keys in ascending order, so the same map always
// encodes to the same bytes regardless of Go's map iteration order.
func sortedMapKeys(m map[string]Variant) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// DecodeVariant reads one tagged Variant from r.
func DecodeVariant(r *bytes.Reader) (Variant, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return Variant{}, fmt.Errorf("remotemodel: %w: %v", ErrMalformedFrame, err)
	}
	kind := VariantKind(tagByte)
	switch kind {
	case VariantNull:
		return NullVariant(), nil
	case VariantInt32:
		v, err := readInt32(r)
		if err != nil {
			return Variant{}, err
		}
		return Int32Variant(v), nil
	case VariantInt64:
		v, err := readInt64(r)
		if err != nil {
			return Variant{}, err
		}
		return Int64Variant(v), nil
	case VariantBool:
		b, err := r.ReadByte()
		if err != nil {
			return Variant{}, fmt.Errorf("remotemodel: %w: %v", ErrMalformedFrame, err)
		}
		return BoolVariant(b != 0), nil
	case VariantString:
		b, err := readLenBytes(r)
		if err != nil {
			return Variant{}, err
		}
		return StringVariant(string(b)), nil
	case VariantBytes:
		b, err := readLenBytes(r)
		if err != nil {
			return Variant{}, err
		}
		return BytesVariant(b), nil
	case VariantPoint:
		x, err := readInt32(r)
		if err != nil {
			return Variant{}, err
		}
		y, err := readInt32(r)
		if err != nil {
			return Variant{}, err
		}
		return PointVariant(Point{X: x, Y: y}), nil
	case VariantList:
		list, err := decodeVariantList(r)
		if err != nil {
			return Variant{}, err
		}
		return ListVariant(list), nil
	case VariantMap:
		var n [4]byte
		if _, err := readFull(r, n[:]); err != nil {
			return Variant{}, err
		}
		count := binary.BigEndian.Uint32(n[:])
		m := make(map[string]Variant, count)
		for i := uint32(0); i < count; i++ {
			kb, err := readLenBytes(r)
			if err != nil {
				return Variant{}, err
			}
			val, err := DecodeVariant(r)
			if err != nil {
				return Variant{}, err
			}
			m[string(kb)] = val
		}
		return MapVariant(m), nil
	default:
		return Variant{}, fmt.Errorf("remotemodel: decode variant: %w: tag %d", ErrMalformedFrame, tagByte)
	}
}

func decodeVariantList(r *bytes.Reader) ([]Variant, error) {
	var n [4]byte
	if _, err := readFull(r, n[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(n[:])
	list := make([]Variant, count)
	for i := range list {
		v, err := DecodeVariant(r)
		if err != nil {
			return nil, err
		}
		list[i] = v
	}
	return list, nil
}
