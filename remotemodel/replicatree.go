// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"fmt"
	"sort"
	"sync"
)

// nodeID identifies a replica node by a small arena index into Tree.nodes
// rather than a pointer, so rows/columns can be inserted, removed, and
// moved by rewriting map entries instead of chasing aliased pointers.
type nodeID int64

const rootID nodeID = 0

type childKey struct {
	row, col int32
}

type node struct {
	id       nodeID
	row, col int32
	parent   nodeID
	children map[childKey]nodeID
}

// Tree is the client-side mirror described in §3.2/§4.3. All structural
// mutation happens through its Apply* methods; all reads take the same
// lock, so the Tree may safely be queried from a goroutine other than the
// one applying signals (§5: "queries from foreign tasks must be routed ...
// or guarded externally" — this is the external guard).
type Tree struct {
	mu     sync.RWMutex
	nodes  map[nodeID]*node
	nextID nodeID

	// knownColumnCount/knownRowCount record the column/row count learned for
	// a parent even when it currently has zero children, so a later
	// rowsInserted/columnsInserted signal on a childless parent needs no
	// remote call if this replica has populated that parent before (see
	// SPEC_FULL.md §7). A parent that never had children (such as a leaf
	// seen during bootstrap) has no recorded count.
	knownColumnCount map[nodeID]int32
	knownRowCount    map[nodeID]int32
}

// NewTree returns an empty tree containing only the root.
func NewTree() *Tree {
	t := &Tree{
		nodes:            make(map[nodeID]*node),
		knownColumnCount: make(map[nodeID]int32),
		knownRowCount:    make(map[nodeID]int32),
	}
	t.resetLocked()
	return t
}

func (t *Tree) resetLocked() {
	t.nodes = map[nodeID]*node{
		rootID: {id: rootID, row: -1, col: -1, parent: -1, children: make(map[childKey]nodeID)},
	}
	t.nextID = rootID + 1
	t.knownColumnCount = make(map[nodeID]int32)
	t.knownRowCount = make(map[nodeID]int32)
}

// Reset destroys the entire tree except the root (modelReset, §4.3).
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tree) newNode(row, col int32, parent nodeID) *node {
	n := &node{id: t.nextID, row: row, col: col, parent: parent, children: make(map[childKey]nodeID)}
	t.nodes[n.id] = n
	t.nextID++
	return n
}

// Root returns the root node's id.
func (t *Tree) Root() nodeID { return rootID }

// Lookup descends the tree by path and returns the addressed node's id.
func (t *Tree) Lookup(path IndexPath) (nodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupLocked(path)
}

func (t *Tree) lookupLocked(path IndexPath) (nodeID, bool) {
	cur := rootID
	for _, step := range path {
		n, ok := t.nodes[cur]
		if !ok {
			return 0, false
		}
		next, ok := n.children[childKey{row: step.Row, col: step.Column}]
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// Index performs a sibling lookup: the child of parent at (row, col).
func (t *Tree) Index(row, col int32, parent nodeID) (nodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[parent]
	if !ok {
		return 0, false
	}
	id, ok := n.children[childKey{row: row, col: col}]
	return id, ok
}

// PathOf reconstructs the IndexPath addressing id.
func (t *Tree) PathOf(id nodeID) (IndexPath, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pathOfLocked(id)
}

func (t *Tree) pathOfLocked(id nodeID) (IndexPath, bool) {
	var steps []Step
	cur := id
	for cur != rootID {
		n, ok := t.nodes[cur]
		if !ok {
			return nil, false
		}
		steps = append(steps, Step{Row: n.row, Column: n.col})
		cur = n.parent
	}
	path := make(IndexPath, len(steps))
	for i, s := range steps {
		path[len(steps)-1-i] = s
	}
	return path, true
}

// ParentOf returns the parent id of id and true, or false if id is the root
// or unknown.
func (t *Tree) ParentOf(id nodeID) (nodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok || id == rootID {
		return 0, false
	}
	return n.parent, true
}

// RowCount returns max(child.row)+1 over parent's children, or 0 if none.
func (t *Tree) RowCount(parent nodeID) int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rowCountLocked(parent)
}

func (t *Tree) rowCountLocked(parent nodeID) int32 {
	n, ok := t.nodes[parent]
	if !ok {
		return 0
	}
	var max int32 = -1
	for k := range n.children {
		if k.row > max {
			max = k.row
		}
	}
	return max + 1
}

// ColumnCount returns max(child.col)+1 over parent's children, or 0 if none.
func (t *Tree) ColumnCount(parent nodeID) int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columnCountLocked(parent)
}

func (t *Tree) columnCountLocked(parent nodeID) int32 {
	n, ok := t.nodes[parent]
	if !ok {
		return 0
	}
	var max int32 = -1
	for k := range n.children {
		if k.col > max {
			max = k.col
		}
	}
	return max + 1
}

// HasChildren reports whether parent has any children.
func (t *Tree) HasChildren(parent nodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[parent]
	return ok && len(n.children) > 0
}

// KnownColumnCount returns a column count recorded for parent via
// RecordColumnCount, even if parent currently has no children.
func (t *Tree) KnownColumnCount(parent nodeID) (int32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.knownColumnCount[parent]
	return c, ok
}

// RecordColumnCount caches a column count learned for parent out of band
// (bootstrap, or an explicit columnCount call), so future ApplyRowsInserted
// calls never need to re-ask the server.
func (t *Tree) RecordColumnCount(parent nodeID, count int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.knownColumnCount[parent] = count
}

// KnownRowCount is the column-axis symmetric twin of KnownColumnCount, used
// by the columnsInserted handler.
func (t *Tree) KnownRowCount(parent nodeID) (int32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.knownRowCount[parent]
	return r, ok
}

// RecordRowCount is the column-axis symmetric twin of RecordColumnCount.
func (t *Tree) RecordRowCount(parent nodeID, count int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.knownRowCount[parent] = count
}

// ApplyRowsInserted creates fresh nodes for rows [first,last] under parent,
// each with columnCount columns, and shifts pre-existing siblings with
// row >= first up by the inserted block size (§4.3).
func (t *Tree) ApplyRowsInserted(parent nodeID, first, last, columnCount int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("remotemodel: rowsInserted: unknown parent")
	}
	delta := last - first + 1
	t.shiftRows(n, first, delta)
	for row := first; row <= last; row++ {
		for col := int32(0); col < columnCount; col++ {
			child := t.newNode(row, col, parent)
			n.children[childKey{row: row, col: col}] = child.id
		}
	}
	t.knownColumnCount[parent] = t.columnCountLocked(parent)
	return t.checkRectangularLocked(parent)
}

// shiftRows adds delta to the row of every child of n with row >= atLeast,
// working from highest row to lowest when delta is positive and from lowest
// to highest when it is negative, so keys never collide mid-shift.
func (t *Tree) shiftRows(n *node, atLeast, delta int32) {
	type entry struct {
		key childKey
		id  nodeID
	}
	var toMove []entry
	for k, id := range n.children {
		if k.row >= atLeast {
			toMove = append(toMove, entry{k, id})
		}
	}
	sort.Slice(toMove, func(i, j int) bool {
		if delta >= 0 {
			return toMove[i].key.row > toMove[j].key.row
		}
		return toMove[i].key.row < toMove[j].key.row
	})
	for _, e := range toMove {
		delete(n.children, e.key)
		newKey := childKey{row: e.key.row + delta, col: e.key.col}
		n.children[newKey] = e.id
		t.nodes[e.id].row = newKey.row
	}
}

func (t *Tree) shiftCols(n *node, atLeast, delta int32) {
	type entry struct {
		key childKey
		id  nodeID
	}
	var toMove []entry
	for k, id := range n.children {
		if k.col >= atLeast {
			toMove = append(toMove, entry{k, id})
		}
	}
	sort.Slice(toMove, func(i, j int) bool {
		if delta >= 0 {
			return toMove[i].key.col > toMove[j].key.col
		}
		return toMove[i].key.col < toMove[j].key.col
	})
	for _, e := range toMove {
		delete(n.children, e.key)
		newKey := childKey{row: e.key.row, col: e.key.col + delta}
		n.children[newKey] = e.id
		t.nodes[e.id].col = newKey.col
	}
}

// ApplyRowsRemoved destroys the subtree of every child with row in
// [first,last], then shifts later siblings down by the removed block size.
func (t *Tree) ApplyRowsRemoved(parent nodeID, first, last int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("remotemodel: rowsRemoved: unknown parent")
	}
	for k, id := range n.children {
		if k.row >= first && k.row <= last {
			delete(n.children, k)
			t.destroySubtree(id)
		}
	}
	delta := last - first + 1
	t.shiftRows(n, last+1, -delta)
	if len(n.children) > 0 {
		t.knownColumnCount[parent] = t.columnCountLocked(parent)
	}
	return t.checkRectangularLocked(parent)
}

// ApplyColumnsInserted is the column-axis symmetric twin of
// ApplyRowsInserted.
func (t *Tree) ApplyColumnsInserted(parent nodeID, first, last, rowCount int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("remotemodel: columnsInserted: unknown parent")
	}
	delta := last - first + 1
	t.shiftCols(n, first, delta)
	for col := first; col <= last; col++ {
		for row := int32(0); row < rowCount; row++ {
			child := t.newNode(row, col, parent)
			n.children[childKey{row: row, col: col}] = child.id
		}
	}
	t.knownRowCount[parent] = t.rowCountLocked(parent)
	return t.checkRectangularLocked(parent)
}

// ApplyColumnsRemoved is the column-axis symmetric twin of
// ApplyRowsRemoved.
func (t *Tree) ApplyColumnsRemoved(parent nodeID, first, last int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("remotemodel: columnsRemoved: unknown parent")
	}
	for k, id := range n.children {
		if k.col >= first && k.col <= last {
			delete(n.children, k)
			t.destroySubtree(id)
		}
	}
	delta := last - first + 1
	t.shiftCols(n, last+1, -delta)
	return t.checkRectangularLocked(parent)
}

// ApplyRowsMoved moves the contiguous row block [srcFirst,srcLast] from
// srcParent to dstParent, landing at dstRow (§4.3).
func (t *Tree) ApplyRowsMoved(srcParent nodeID, srcFirst, srcLast int32, dstParent nodeID, dstRow int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyMoved(srcParent, srcFirst, srcLast, dstParent, dstRow, true)
}

// ApplyColumnsMoved is the column-axis symmetric twin of ApplyRowsMoved.
func (t *Tree) ApplyColumnsMoved(srcParent nodeID, srcFirst, srcLast int32, dstParent nodeID, dstCol int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyMoved(srcParent, srcFirst, srcLast, dstParent, dstCol, false)
}

type detachedChild struct {
	other  int32 // the axis not being moved (col for a row move, row for a col move)
	offset int32 // position within the moved block
	id     nodeID
}

func (t *Tree) applyMoved(srcParent nodeID, srcFirst, srcLast int32, dstParent nodeID, dstPos int32, byRow bool) error {
	srcNode, ok := t.nodes[srcParent]
	if !ok {
		return fmt.Errorf("remotemodel: move: unknown source parent")
	}
	dstNode, ok := t.nodes[dstParent]
	if !ok {
		return fmt.Errorf("remotemodel: move: unknown destination parent")
	}
	blockSize := srcLast - srcFirst + 1

	primary := func(k childKey) int32 {
		if byRow {
			return k.row
		}
		return k.col
	}
	other := func(k childKey) int32 {
		if byRow {
			return k.col
		}
		return k.row
	}
	makeKey := func(pos, oth int32) childKey {
		if byRow {
			return childKey{row: pos, col: oth}
		}
		return childKey{row: oth, col: pos}
	}

	var block []detachedChild
	for k, id := range srcNode.children {
		if primary(k) >= srcFirst && primary(k) <= srcLast {
			block = append(block, detachedChild{other: other(k), offset: primary(k) - srcFirst, id: id})
			delete(srcNode.children, k)
		}
	}

	if byRow {
		t.shiftRows(srcNode, srcLast+1, -blockSize)
	} else {
		t.shiftCols(srcNode, srcLast+1, -blockSize)
	}

	adjustedDst := dstPos
	if srcParent == dstParent && dstPos > srcLast {
		adjustedDst -= blockSize
	}

	if byRow {
		t.shiftRows(dstNode, adjustedDst, blockSize)
	} else {
		t.shiftCols(dstNode, adjustedDst, blockSize)
	}

	for _, d := range block {
		pos := adjustedDst + d.offset
		key := makeKey(pos, d.other)
		dstNode.children[key] = d.id
		cn := t.nodes[d.id]
		cn.row = key.row
		cn.col = key.col
		cn.parent = dstParent
	}

	if err := t.checkRectangularLocked(srcParent); err != nil {
		return err
	}
	return t.checkRectangularLocked(dstParent)
}

// destroySubtree removes id and every descendant from the node table.
func (t *Tree) destroySubtree(id nodeID) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, childID := range n.children {
		t.destroySubtree(childID)
	}
	delete(t.nodes, id)
	delete(t.knownColumnCount, id)
	delete(t.knownRowCount, id)
}

// checkRectangularLocked verifies invariant I1: parent's children form a
// dense rectangular grid with origin (0,0).
func (t *Tree) checkRectangularLocked(parent nodeID) error {
	n, ok := t.nodes[parent]
	if !ok || len(n.children) == 0 {
		return nil
	}
	rows := t.rowCountLocked(parent)
	cols := t.columnCountLocked(parent)
	if int(rows)*int(cols) != len(n.children) {
		return fmt.Errorf("remotemodel: %w: parent has %d children, want %dx%d grid", ErrStateInvariantViolated, len(n.children), rows, cols)
	}
	for r := int32(0); r < rows; r++ {
		for c := int32(0); c < cols; c++ {
			if _, ok := n.children[childKey{row: r, col: c}]; !ok {
				return fmt.Errorf("remotemodel: %w: missing (%d,%d)", ErrStateInvariantViolated, r, c)
			}
		}
	}
	return nil
}
