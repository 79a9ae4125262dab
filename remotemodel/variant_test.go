// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"bytes"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, v Variant) Variant {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeVariant(&buf, v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeVariant(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestVariantRoundTrip(t *testing.T) {
	cases := []Variant{
		NullVariant(),
		Int32Variant(42),
		Int32Variant(-7),
		Int64Variant(1 << 40),
		BoolVariant(true),
		BoolVariant(false),
		StringVariant("row 0, column 0"),
		StringVariant(""),
		BytesVariant([]byte{0x01, 0x02, 0x03}),
		PointVariant(Point{X: 3, Y: 9}),
		ListVariant([]Variant{Int32Variant(1), StringVariant("a"), NullVariant()}),
		MapVariant(map[string]Variant{
			"0": StringVariant("display"),
			"1": StringVariant("edit"),
		}),
	}
	for _, want := range cases {
		got := roundTrip(t, want)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestVariantNestedListRoundTrip(t *testing.T) {
	want := ListVariant([]Variant{
		PointVariant(Point{X: 0, Y: 0}),
		PointVariant(Point{X: 1, Y: 2}),
	})
	got := roundTrip(t, want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeVariantUnknownTag(t *testing.T) {
	_, err := DecodeVariant(bytes.NewReader([]byte{0xFF}))
	if err == nil {
		t.Fatal("expected error decoding unknown tag")
	}
}

func TestDecodeVariantTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeVariant(&buf, StringVariant("hello")); err != nil {
		t.Fatalf("encode: %v", err)
	}
	truncated := buf.Bytes()[:len(buf.Bytes())-2]
	if _, err := DecodeVariant(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error decoding truncated variant")
	}
}
