// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

// Role selects which aspect of a cell's data is being asked for (§6.1).
type Role int32

const (
	RoleDisplay    Role = 0
	RoleDecoration Role = 1
	RoleEdit       Role = 2
	RoleToolTip    Role = 3
	RoleStatusTip  Role = 4
	RoleWhatsThis  Role = 5
	// RoleUser is the first role value available to a model-specific role.
	RoleUser Role = 0x0100
)

// Orientation selects the axis a headerData query addresses.
type Orientation int32

const (
	OrientationHorizontal Orientation = 1
	OrientationVertical   Orientation = 2
)

// ItemFlag is a bitmask describing what a UI is allowed to do with a cell.
type ItemFlag uint32

const FlagNone ItemFlag = 0

const (
	FlagSelectable ItemFlag = 1 << iota
	FlagEnabled
	FlagEditable
	FlagDragEnabled
	FlagDropEnabled
)

// ChangeListener receives the authoritative model's change notifications
// (§4.6). Implementations must not block; long work should be handed off.
type ChangeListener interface {
	DataChanged(topLeft, bottomRight IndexPath, roles []Role)
	HeaderDataChanged(orientation Orientation, first, last int32)

	LayoutAboutToBeChanged()
	LayoutChanged()

	RowsAboutToBeInserted(parent IndexPath, first, last int32)
	RowsInserted(parent IndexPath, first, last int32)
	RowsAboutToBeRemoved(parent IndexPath, first, last int32)
	RowsRemoved(parent IndexPath, first, last int32)
	RowsAboutToBeMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstRow int32)
	RowsMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstRow int32)

	ColumnsAboutToBeInserted(parent IndexPath, first, last int32)
	ColumnsInserted(parent IndexPath, first, last int32)
	ColumnsAboutToBeRemoved(parent IndexPath, first, last int32)
	ColumnsRemoved(parent IndexPath, first, last int32)
	ColumnsAboutToBeMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstColumn int32)
	ColumnsMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstColumn int32)

	ModelAboutToBeReset()
	ModelReset()
	ModelDestroyed()
}

// AuthoritativeModel is the provider of the data a Server serves (§6.1). It
// is implemented outside this package; remotemodeltest.MemoryModel is a
// reference implementation used by this package's own tests.
type AuthoritativeModel interface {
	RowCount(path IndexPath) (int32, error)
	ColumnCount(path IndexPath) (int32, error)
	HasChildren(path IndexPath) (bool, error)

	Data(path IndexPath, role Role) (Variant, error)
	HeaderData(section int32, orientation Orientation, role Role) (Variant, error)
	ItemData(path IndexPath) (map[Role]Variant, error)

	Flags(path IndexPath) (ItemFlag, error)
	Buddy(path IndexPath) (IndexPath, error)
	RoleNames() (map[Role][]byte, error)

	CanFetchMore(path IndexPath) (bool, error)
	FetchMore(path IndexPath) error
	Submit() (bool, error)

	// Subscribe registers listener for change notifications and returns a
	// function that unsubscribes it.
	Subscribe(listener ChangeListener) (unsubscribe func())
}
