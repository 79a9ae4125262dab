// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import "fmt"

// Step is one (row, column) hop from a parent to a child node.
type Step struct {
	Row    int32
	Column int32
}

// IndexPath is the canonical wire identity of a node: an ordered sequence of
// steps from the invisible root. The empty path denotes the root itself.
type IndexPath []Step

// Equal reports whether p and o address the same node.
func (p IndexPath) Equal(o IndexPath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Parent returns the path to p's parent and true, or the zero path and
// false if p is already the root.
func (p IndexPath) Parent() (IndexPath, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1], true
}

// Last returns the final step of p and true, or the zero step and false if
// p is the root.
func (p IndexPath) Last() (Step, bool) {
	if len(p) == 0 {
		return Step{}, false
	}
	return p[len(p)-1], true
}

// Child returns the path reached by descending from p into (row, column).
func (p IndexPath) Child(row, column int32) IndexPath {
	out := make(IndexPath, len(p)+1)
	copy(out, p)
	out[len(p)] = Step{Row: row, Column: column}
	return out
}

func (p IndexPath) String() string {
	s := "/"
	for _, step := range p {
		s += fmt.Sprintf("(%d,%d)/", step.Row, step.Column)
	}
	return s
}

// ToVariant encodes p as the wire IndexPath representation: a list of
// points, root-most step first, each point carrying (column, row).
func (p IndexPath) ToVariant() Variant {
	list := make([]Variant, len(p))
	for i, step := range p {
		list[i] = PointVariant(Point{X: step.Column, Y: step.Row})
	}
	return ListVariant(list)
}

// IndexPathFromVariant decodes the wire representation produced by
// IndexPath.ToVariant.
func IndexPathFromVariant(v Variant) (IndexPath, error) {
	list, ok := v.List()
	if !ok {
		return nil, fmt.Errorf("remotemodel: index path: %w: expected list, got kind %d", ErrMalformedFrame, v.Kind)
	}
	path := make(IndexPath, len(list))
	for i, item := range list {
		pt, ok := item.Point()
		if !ok {
			return nil, fmt.Errorf("remotemodel: index path: %w: expected point, got kind %d", ErrMalformedFrame, item.Kind)
		}
		path[i] = Step{Row: pt.Y, Column: pt.X}
	}
	return path, nil
}
