// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"reflect"
	"testing"
)

func TestIndexPathVariantRoundTrip(t *testing.T) {
	cases := []IndexPath{
		{},
		{{Row: 0, Column: 0}},
		{{Row: 3, Column: 1}, {Row: 0, Column: 2}},
	}
	for _, path := range cases {
		got, err := IndexPathFromVariant(path.ToVariant())
		if err != nil {
			t.Fatalf("decode %v: %v", path, err)
		}
		if !reflect.DeepEqual(got, path) && !(len(got) == 0 && len(path) == 0) {
			t.Errorf("round trip mismatch: got %v, want %v", got, path)
		}
	}
}

func TestIndexPathChildAndParent(t *testing.T) {
	root := IndexPath{}
	a := root.Child(1, 2)
	b := a.Child(0, 3)

	parent, ok := b.Parent()
	if !ok || !parent.Equal(a) {
		t.Fatalf("Parent() = %v, %v, want %v, true", parent, ok, a)
	}

	last, ok := b.Last()
	if !ok || last != (Step{Row: 0, Column: 3}) {
		t.Fatalf("Last() = %v, %v, want {0 3}, true", last, ok)
	}

	if _, ok := root.Parent(); ok {
		t.Fatal("Parent() of root should report false")
	}
}

func TestIndexPathEqual(t *testing.T) {
	a := IndexPath{{Row: 1, Column: 2}}
	b := IndexPath{{Row: 1, Column: 2}}
	c := IndexPath{{Row: 1, Column: 3}}
	if !a.Equal(b) {
		t.Error("expected a.Equal(b)")
	}
	if a.Equal(c) {
		t.Error("expected !a.Equal(c)")
	}
}

func TestIndexPathFromVariantWrongKind(t *testing.T) {
	if _, err := IndexPathFromVariant(Int32Variant(3)); err == nil {
		t.Fatal("expected error decoding non-list as IndexPath")
	}
}
