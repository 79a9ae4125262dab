// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package remotemodeltest provides an in-memory reference
// remotemodel.AuthoritativeModel for use by remotemodel's own tests and by
// demo servers, grounded on the original qremotemodel demo server's flat
// grid model.
package remotemodeltest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/solidcoredata/dca/remotemodel"
)

type cellID int64

const rootCell cellID = 0

type childKey struct{ row, col int32 }

type cell struct {
	id       cellID
	row, col int32
	parent   cellID
	children map[childKey]cellID
	data     map[remotemodel.Role]remotemodel.Variant
}

// MemoryModel is a small, fully in-memory tabular model: every cell's
// DisplayRole is an explicit string set at creation time. It exists to
// drive this package's tests end to end, not as a production data source.
type MemoryModel struct {
	mu     sync.RWMutex
	cells  map[cellID]*cell
	nextID cellID

	listenersMu sync.Mutex
	listeners   []remotemodel.ChangeListener

	destroyed bool
}

// NewMemoryModel returns an empty model containing only its invisible root.
func NewMemoryModel() *MemoryModel {
	return &MemoryModel{
		cells: map[cellID]*cell{
			rootCell: {id: rootCell, row: -1, col: -1, parent: -1, children: make(map[childKey]cellID)},
		},
		nextID: rootCell + 1,
	}
}

// NewGrid returns a model whose root already holds a rows x cols static
// grid, each cell's display text produced by cellText(row, col).
func NewGrid(rows, cols int32, cellText func(row, col int32) string) *MemoryModel {
	m := NewMemoryModel()
	root := m.cells[rootCell]
	for r := int32(0); r < rows; r++ {
		for c := int32(0); c < cols; c++ {
			cl := m.newCellLocked(r, c, rootCell)
			cl.data = map[remotemodel.Role]remotemodel.Variant{
				remotemodel.RoleDisplay: remotemodel.StringVariant(cellText(r, c)),
			}
			root.children[childKey{row: r, col: c}] = cl.id
		}
	}
	return m
}

func (m *MemoryModel) newCellLocked(row, col int32, parent cellID) *cell {
	c := &cell{id: m.nextID, row: row, col: col, parent: parent, children: make(map[childKey]cellID)}
	m.cells[c.id] = c
	m.nextID++
	return c
}

func (m *MemoryModel) lookupLocked(path remotemodel.IndexPath) (cellID, bool) {
	cur := rootCell
	for _, step := range path {
		c, ok := m.cells[cur]
		if !ok {
			return 0, false
		}
		next, ok := c.children[childKey{row: step.Row, col: step.Column}]
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// --- remotemodel.AuthoritativeModel ---

func (m *MemoryModel) RowCount(path remotemodel.IndexPath) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return 0, nil
	}
	id, ok := m.lookupLocked(path)
	if !ok {
		return 0, fmt.Errorf("remotemodeltest: rowCount: no such path %v", path)
	}
	return m.rowCountLocked(id), nil
}

func (m *MemoryModel) rowCountLocked(id cellID) int32 {
	c := m.cells[id]
	var max int32 = -1
	for k := range c.children {
		if k.row > max {
			max = k.row
		}
	}
	return max + 1
}

func (m *MemoryModel) ColumnCount(path remotemodel.IndexPath) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return 0, nil
	}
	id, ok := m.lookupLocked(path)
	if !ok {
		return 0, fmt.Errorf("remotemodeltest: columnCount: no such path %v", path)
	}
	return m.columnCountLocked(id), nil
}

func (m *MemoryModel) columnCountLocked(id cellID) int32 {
	c := m.cells[id]
	var max int32 = -1
	for k := range c.children {
		if k.col > max {
			max = k.col
		}
	}
	return max + 1
}

func (m *MemoryModel) HasChildren(path remotemodel.IndexPath) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return false, nil
	}
	id, ok := m.lookupLocked(path)
	if !ok {
		return false, fmt.Errorf("remotemodeltest: hasChildren: no such path %v", path)
	}
	return len(m.cells[id].children) > 0, nil
}

func (m *MemoryModel) Data(path remotemodel.IndexPath, role remotemodel.Role) (remotemodel.Variant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return remotemodel.NullVariant(), nil
	}
	id, ok := m.lookupLocked(path)
	if !ok {
		return remotemodel.Variant{}, fmt.Errorf("remotemodeltest: data: no such path %v", path)
	}
	v, ok := m.cells[id].data[role]
	if !ok {
		return remotemodel.NullVariant(), nil
	}
	return v, nil
}

func (m *MemoryModel) HeaderData(section int32, orientation remotemodel.Orientation, role remotemodel.Role) (remotemodel.Variant, error) {
	if orientation == remotemodel.OrientationHorizontal {
		return remotemodel.StringVariant(fmt.Sprintf("column %d", section)), nil
	}
	return remotemodel.StringVariant(fmt.Sprintf("row %d", section)), nil
}

func (m *MemoryModel) ItemData(path remotemodel.IndexPath) (map[remotemodel.Role]remotemodel.Variant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return nil, nil
	}
	id, ok := m.lookupLocked(path)
	if !ok {
		return nil, fmt.Errorf("remotemodeltest: itemData: no such path %v", path)
	}
	out := make(map[remotemodel.Role]remotemodel.Variant, len(m.cells[id].data))
	for role, v := range m.cells[id].data {
		out[role] = v
	}
	return out, nil
}

func (m *MemoryModel) Flags(path remotemodel.IndexPath) (remotemodel.ItemFlag, error) {
	return remotemodel.FlagSelectable | remotemodel.FlagEnabled, nil
}

func (m *MemoryModel) Buddy(path remotemodel.IndexPath) (remotemodel.IndexPath, error) {
	return path, nil
}

func (m *MemoryModel) RoleNames() (map[remotemodel.Role][]byte, error) {
	return map[remotemodel.Role][]byte{remotemodel.RoleDisplay: []byte("display")}, nil
}

func (m *MemoryModel) CanFetchMore(path remotemodel.IndexPath) (bool, error) { return false, nil }
func (m *MemoryModel) FetchMore(path remotemodel.IndexPath) error            { return nil }
func (m *MemoryModel) Submit() (bool, error)                                 { return true, nil }

// Subscribe registers listener for change notifications and returns a
// function that unsubscribes it.
func (m *MemoryModel) Subscribe(listener remotemodel.ChangeListener) func() {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, listener)
	m.listenersMu.Unlock()
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		for i, l := range m.listeners {
			if l == listener {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *MemoryModel) notify(f func(remotemodel.ChangeListener)) {
	m.listenersMu.Lock()
	listeners := append([]remotemodel.ChangeListener(nil), m.listeners...)
	m.listenersMu.Unlock()
	for _, l := range listeners {
		f(l)
	}
}

// --- mutation API used by tests and demo servers ---

// SetCell overwrites role's value at path, emitting dataChanged.
func (m *MemoryModel) SetCell(path remotemodel.IndexPath, role remotemodel.Role, v remotemodel.Variant) error {
	m.mu.Lock()
	id, ok := m.lookupLocked(path)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("remotemodeltest: setCell: no such path %v", path)
	}
	if m.cells[id].data == nil {
		m.cells[id].data = make(map[remotemodel.Role]remotemodel.Variant)
	}
	m.cells[id].data[role] = v
	m.mu.Unlock()

	m.notify(func(l remotemodel.ChangeListener) {
		l.DataChanged(path, path, []remotemodel.Role{role})
	})
	return nil
}

// InsertRows inserts count fresh rows at first under parentPath, each
// column's display text produced by cellText(row, col) (§8 scenario 2).
func (m *MemoryModel) InsertRows(parentPath remotemodel.IndexPath, first, count int32, cellText func(row, col int32) string) error {
	m.mu.Lock()
	parentID, ok := m.lookupLocked(parentPath)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("remotemodeltest: insertRows: no such parent %v", parentPath)
	}
	cols := m.columnCountLocked(parentID)
	if cols == 0 {
		cols = 1
	}
	last := first + count - 1
	m.mu.Unlock()

	m.notify(func(l remotemodel.ChangeListener) { l.RowsAboutToBeInserted(parentPath, first, last) })

	m.mu.Lock()
	parent := m.cells[parentID]
	m.shiftRowsLocked(parent, first, count)
	for row := first; row <= last; row++ {
		for col := int32(0); col < cols; col++ {
			c := m.newCellLocked(row, col, parentID)
			c.data = map[remotemodel.Role]remotemodel.Variant{
				remotemodel.RoleDisplay: remotemodel.StringVariant(cellText(row, col)),
			}
			parent.children[childKey{row: row, col: col}] = c.id
		}
	}
	m.mu.Unlock()

	m.notify(func(l remotemodel.ChangeListener) { l.RowsInserted(parentPath, first, last) })
	return nil
}

// RemoveRows deletes rows [first,last] under parentPath.
func (m *MemoryModel) RemoveRows(parentPath remotemodel.IndexPath, first, last int32) error {
	m.mu.RLock()
	parentID, ok := m.lookupLocked(parentPath)
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("remotemodeltest: removeRows: no such parent %v", parentPath)
	}

	m.notify(func(l remotemodel.ChangeListener) { l.RowsAboutToBeRemoved(parentPath, first, last) })

	m.mu.Lock()
	parent := m.cells[parentID]
	for k, id := range parent.children {
		if k.row >= first && k.row <= last {
			delete(parent.children, k)
			m.destroySubtreeLocked(id)
		}
	}
	m.shiftRowsLocked(parent, last+1, -(last - first + 1))
	m.mu.Unlock()

	m.notify(func(l remotemodel.ChangeListener) { l.RowsRemoved(parentPath, first, last) })
	return nil
}

// MoveRows moves rows [srcFirst,srcLast] from srcParentPath to dstRow under
// dstParentPath (§8 scenario 3).
func (m *MemoryModel) MoveRows(srcParentPath remotemodel.IndexPath, srcFirst, srcLast int32, dstParentPath remotemodel.IndexPath, dstRow int32) error {
	m.mu.RLock()
	srcParentID, ok1 := m.lookupLocked(srcParentPath)
	dstParentID, ok2 := m.lookupLocked(dstParentPath)
	m.mu.RUnlock()
	if !ok1 {
		return fmt.Errorf("remotemodeltest: moveRows: no such source parent %v", srcParentPath)
	}
	if !ok2 {
		return fmt.Errorf("remotemodeltest: moveRows: no such destination parent %v", dstParentPath)
	}

	m.notify(func(l remotemodel.ChangeListener) {
		l.RowsAboutToBeMoved(srcParentPath, srcFirst, srcLast, dstParentPath, dstRow)
	})

	m.mu.Lock()
	srcParent := m.cells[srcParentID]
	dstParent := m.cells[dstParentID]
	blockSize := srcLast - srcFirst + 1

	type moved struct {
		col, offset int32
		id          cellID
	}
	var block []moved
	for k, id := range srcParent.children {
		if k.row >= srcFirst && k.row <= srcLast {
			block = append(block, moved{col: k.col, offset: k.row - srcFirst, id: id})
			delete(srcParent.children, k)
		}
	}

	m.shiftRowsLocked(srcParent, srcLast+1, -blockSize)

	adjustedDst := dstRow
	if srcParentID == dstParentID && dstRow > srcLast {
		adjustedDst -= blockSize
	}
	m.shiftRowsLocked(dstParent, adjustedDst, blockSize)

	for _, bl := range block {
		row := adjustedDst + bl.offset
		key := childKey{row: row, col: bl.col}
		dstParent.children[key] = bl.id
		cl := m.cells[bl.id]
		cl.row = row
		cl.parent = dstParentID
	}
	m.mu.Unlock()

	m.notify(func(l remotemodel.ChangeListener) {
		l.RowsMoved(srcParentPath, srcFirst, srcLast, dstParentPath, dstRow)
	})
	return nil
}

// shiftRowsLocked adds delta to the row of every child of parent with row
// >= atLeast. Callers must hold m.mu.
func (m *MemoryModel) shiftRowsLocked(parent *cell, atLeast, delta int32) {
	type entry struct {
		key childKey
		id  cellID
	}
	var toMove []entry
	for k, id := range parent.children {
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
		delete(parent.children, e.key)
		newKey := childKey{row: e.key.row + delta, col: e.key.col}
		parent.children[newKey] = e.id
		m.cells[e.id].row = newKey.row
	}
}

func (m *MemoryModel) destroySubtreeLocked(id cellID) {
	c, ok := m.cells[id]
	if !ok {
		return
	}
	for _, childID := range c.children {
		m.destroySubtreeLocked(childID)
	}
	delete(m.cells, id)
}

// Reset destroys the entire model except its root (§8 scenario 6).
func (m *MemoryModel) Reset() {
	m.notify(func(l remotemodel.ChangeListener) { l.ModelAboutToBeReset() })

	m.mu.Lock()
	m.cells = map[cellID]*cell{
		rootCell: {id: rootCell, row: -1, col: -1, parent: -1, children: make(map[childKey]cellID)},
	}
	m.nextID = rootCell + 1
	m.mu.Unlock()

	m.notify(func(l remotemodel.ChangeListener) { l.ModelReset() })
}

// Destroy marks the model gone, per §4.6/§7 ModelGone: RowCount,
// ColumnCount, HasChildren, Data and ItemData answer as if empty from then
// on (HeaderData, Flags and RoleNames are unaffected), and each call
// broadcasts modelDestroyed.
func (m *MemoryModel) Destroy() {
	m.mu.Lock()
	m.destroyed = true
	m.mu.Unlock()
	m.notify(func(l remotemodel.ChangeListener) { l.ModelDestroyed() })
}
