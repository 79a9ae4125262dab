// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import "testing"

// build4x4 populates a 4x4 grid under the root, mirroring scenario 1's
// static model, and returns the tree.
func build4x4(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	if err := tree.ApplyRowsInserted(tree.Root(), 0, 3, 4); err != nil {
		t.Fatalf("ApplyRowsInserted: %v", err)
	}
	return tree
}

func rowColOf(t *testing.T, tree *Tree, row, col int32) (int32, int32) {
	t.Helper()
	id, ok := tree.Index(row, col, tree.Root())
	if !ok {
		t.Fatalf("Index(%d,%d) not found", row, col)
	}
	path, ok := tree.PathOf(id)
	if !ok {
		t.Fatalf("PathOf(%v) not found", id)
	}
	last, _ := path.Last()
	return last.Row, last.Column
}

func TestTreeStatic4x4(t *testing.T) {
	tree := build4x4(t)
	if rc := tree.RowCount(tree.Root()); rc != 4 {
		t.Errorf("RowCount(root) = %d, want 4", rc)
	}
	if cc := tree.ColumnCount(tree.Root()); cc != 4 {
		t.Errorf("ColumnCount(root) = %d, want 4", cc)
	}
	id, ok := tree.Index(0, 0, tree.Root())
	if !ok {
		t.Fatal("Index(0,0) not found")
	}
	if tree.HasChildren(id) {
		t.Error("leaf cell should have no children")
	}
}

func TestTreeInsertMiddleRow(t *testing.T) {
	tree := build4x4(t)
	if err := tree.ApplyRowsInserted(tree.Root(), 2, 2, 4); err != nil {
		t.Fatalf("ApplyRowsInserted: %v", err)
	}
	if rc := tree.RowCount(tree.Root()); rc != 5 {
		t.Fatalf("RowCount(root) = %d, want 5", rc)
	}
	// Original row 2 now lives at row 3 (§8 scenario 2).
	id, ok := tree.Index(3, 1, tree.Root())
	if !ok {
		t.Fatal("Index(3,1) not found after insert")
	}
	path, _ := tree.PathOf(id)
	last, _ := path.Last()
	if last.Row != 3 || last.Column != 1 {
		t.Errorf("path last step = %+v, want {3 1}", last)
	}
}

func TestTreeMoveRows(t *testing.T) {
	tree := build4x4(t)
	origAt00, _ := tree.Index(0, 0, tree.Root())
	origAt10, _ := tree.Index(1, 0, tree.Root())

	if err := tree.ApplyRowsMoved(tree.Root(), 0, 1, tree.Root(), 4); err != nil {
		t.Fatalf("ApplyRowsMoved: %v", err)
	}

	id00, ok := tree.Index(0, 0, tree.Root())
	if !ok {
		t.Fatal("Index(0,0) not found after move")
	}
	if id00 == origAt00 {
		t.Error("(0,0) after move should be the original row 2, not original row 0")
	}

	id20, ok := tree.Index(2, 0, tree.Root())
	if !ok {
		t.Fatal("Index(2,0) not found after move")
	}
	if id20 != origAt00 {
		t.Error("(2,0) after move should be the original (0,0) node")
	}
	_ = origAt10
}

func TestTreeMoveRowsNoOpWhenDstEqualsSrcFirst(t *testing.T) {
	tree := build4x4(t)
	before := make(map[childKey]nodeID)
	root := tree.nodes[tree.Root()]
	for k, v := range root.children {
		before[k] = v
	}

	if err := tree.ApplyRowsMoved(tree.Root(), 1, 2, tree.Root(), 1); err != nil {
		t.Fatalf("ApplyRowsMoved: %v", err)
	}

	after := tree.nodes[tree.Root()].children
	if len(after) != len(before) {
		t.Fatalf("child count changed: got %d, want %d", len(after), len(before))
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("child at %+v changed: got %v, want %v", k, after[k], v)
		}
	}
}

func TestTreeNestedSubtree(t *testing.T) {
	tree := NewTree()
	if err := tree.ApplyRowsInserted(tree.Root(), 0, 1, 1); err != nil {
		t.Fatalf("ApplyRowsInserted(root): %v", err)
	}
	for r := int32(0); r < 2; r++ {
		id, ok := tree.Index(r, 0, tree.Root())
		if !ok {
			t.Fatalf("Index(%d,0) not found", r)
		}
		if err := tree.ApplyRowsInserted(id, 0, 2, 2); err != nil {
			t.Fatalf("ApplyRowsInserted(child %d): %v", r, err)
		}
	}

	count := 0
	for id := range tree.nodes {
		if id != tree.Root() {
			count++
		}
	}
	if count != 2+2*6 {
		t.Errorf("non-root node count = %d, want %d", count, 2+2*6)
	}
}

func TestTreeRowsInsertedThenRemovedIsIdentity(t *testing.T) {
	tree := build4x4(t)
	before := len(tree.nodes)

	if err := tree.ApplyRowsInserted(tree.Root(), 1, 2, 4); err != nil {
		t.Fatalf("ApplyRowsInserted: %v", err)
	}
	if err := tree.ApplyRowsRemoved(tree.Root(), 1, 2); err != nil {
		t.Fatalf("ApplyRowsRemoved: %v", err)
	}

	after := len(tree.nodes)
	if after != before {
		t.Errorf("node count after insert+remove = %d, want %d", after, before)
	}
	if rc := tree.RowCount(tree.Root()); rc != 4 {
		t.Errorf("RowCount(root) after insert+remove = %d, want 4", rc)
	}
}

func TestTreeEmptyModelHasNoChildren(t *testing.T) {
	tree := NewTree()
	if tree.HasChildren(tree.Root()) {
		t.Error("empty tree's root should have no children")
	}
}

func TestTreeReset(t *testing.T) {
	tree := build4x4(t)
	tree.Reset()
	if tree.HasChildren(tree.Root()) {
		t.Error("root should have no children after Reset")
	}
	if rc := tree.RowCount(tree.Root()); rc != 0 {
		t.Errorf("RowCount(root) after Reset = %d, want 0", rc)
	}
}

func TestTreeColumnsInsertedSymmetric(t *testing.T) {
	tree := build4x4(t)
	if err := tree.ApplyColumnsInserted(tree.Root(), 1, 1, 4); err != nil {
		t.Fatalf("ApplyColumnsInserted: %v", err)
	}
	if cc := tree.ColumnCount(tree.Root()); cc != 5 {
		t.Errorf("ColumnCount(root) = %d, want 5", cc)
	}
}
