// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"sync"

	"github.com/rs/zerolog"
)

// ModelAdapter subscribes to an AuthoritativeModel's change notifications
// and turns each into a broadcast EmitSignal message, preserving emission
// order (§4.6). It implements ChangeListener itself.
type ModelAdapter struct {
	broadcast func(payload []byte)
	log       zerolog.Logger

	mu          sync.RWMutex
	model       AuthoritativeModel
	unsubscribe func()
}

// NewModelAdapter subscribes to model and calls broadcast with the encoded
// frame payload for every change notification it observes.
func NewModelAdapter(model AuthoritativeModel, broadcast func(payload []byte), log zerolog.Logger) *ModelAdapter {
	a := &ModelAdapter{broadcast: broadcast, log: log, model: model}
	a.unsubscribe = model.Subscribe(a)
	return a
}

// CurrentModel returns the model as seen by the adapter: an always-empty
// stand-in once modelDestroyed has been observed (§4.6, §7 ModelGone).
func (a *ModelAdapter) CurrentModel() AuthoritativeModel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Close unsubscribes the adapter from its model.
func (a *ModelAdapter) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *ModelAdapter) emit(name string, args ...Variant) {
	payload, err := Encode(NewEmitSignal(name, args))
	if err != nil {
		a.log.Error().Err(err).Str("signal", name).Msg("remotemodel: failed to encode signal")
		return
	}
	a.broadcast(payload)
}

func (a *ModelAdapter) DataChanged(topLeft, bottomRight IndexPath, roles []Role) {
	roleList := make([]Variant, len(roles))
	for i, r := range roles {
		roleList[i] = Int32Variant(int32(r))
	}
	a.emit("dataChanged", topLeft.ToVariant(), bottomRight.ToVariant(), ListVariant(roleList))
}

func (a *ModelAdapter) HeaderDataChanged(orientation Orientation, first, last int32) {
	a.emit("headerDataChanged", Int32Variant(int32(orientation)), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) LayoutAboutToBeChanged() { a.emit("layoutAboutToBeChanged") }
func (a *ModelAdapter) LayoutChanged()          { a.emit("layoutChanged") }

func (a *ModelAdapter) RowsAboutToBeInserted(parent IndexPath, first, last int32) {
	a.emit("rowsAboutToBeInserted", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) RowsInserted(parent IndexPath, first, last int32) {
	a.emit("rowsInserted", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) RowsAboutToBeRemoved(parent IndexPath, first, last int32) {
	a.emit("rowsAboutToBeRemoved", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) RowsRemoved(parent IndexPath, first, last int32) {
	a.emit("rowsRemoved", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) RowsAboutToBeMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstRow int32) {
	a.emit("rowsAboutToBeMoved", srcParent.ToVariant(), Int32Variant(srcFirst), Int32Variant(srcLast), dstParent.ToVariant(), Int32Variant(dstRow))
}

func (a *ModelAdapter) RowsMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstRow int32) {
	a.emit("rowsMoved", srcParent.ToVariant(), Int32Variant(srcFirst), Int32Variant(srcLast), dstParent.ToVariant(), Int32Variant(dstRow))
}

func (a *ModelAdapter) ColumnsAboutToBeInserted(parent IndexPath, first, last int32) {
	a.emit("columnsAboutToBeInserted", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) ColumnsInserted(parent IndexPath, first, last int32) {
	a.emit("columnsInserted", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) ColumnsAboutToBeRemoved(parent IndexPath, first, last int32) {
	a.emit("columnsAboutToBeRemoved", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) ColumnsRemoved(parent IndexPath, first, last int32) {
	a.emit("columnsRemoved", parent.ToVariant(), Int32Variant(first), Int32Variant(last))
}

func (a *ModelAdapter) ColumnsAboutToBeMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstColumn int32) {
	a.emit("columnsAboutToBeMoved", srcParent.ToVariant(), Int32Variant(srcFirst), Int32Variant(srcLast), dstParent.ToVariant(), Int32Variant(dstColumn))
}

func (a *ModelAdapter) ColumnsMoved(srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstColumn int32) {
	a.emit("columnsMoved", srcParent.ToVariant(), Int32Variant(srcFirst), Int32Variant(srcLast), dstParent.ToVariant(), Int32Variant(dstColumn))
}

func (a *ModelAdapter) ModelAboutToBeReset() { a.emit("modelAboutToBeReset") }
func (a *ModelAdapter) ModelReset()          { a.emit("modelReset") }

// ModelDestroyed clears the adapter's model reference; subsequent method
// handlers answer as if the model were empty (§4.6, §7 ModelGone).
func (a *ModelAdapter) ModelDestroyed() {
	a.mu.Lock()
	a.model = emptyModel{}
	a.mu.Unlock()
	a.emit("modelDestroyed")
}

// emptyModel answers every query as though the model held no data,
// realizing the ModelGone case without a nil check on every access.
type emptyModel struct{}

func (emptyModel) RowCount(IndexPath) (int32, error)    { return 0, nil }
func (emptyModel) ColumnCount(IndexPath) (int32, error) { return 0, nil }
func (emptyModel) HasChildren(IndexPath) (bool, error)  { return false, nil }
func (emptyModel) Data(IndexPath, Role) (Variant, error) {
	return NullVariant(), nil
}
func (emptyModel) HeaderData(int32, Orientation, Role) (Variant, error) {
	return NullVariant(), nil
}
func (emptyModel) ItemData(IndexPath) (map[Role]Variant, error) { return nil, nil }
func (emptyModel) Flags(IndexPath) (ItemFlag, error)            { return FlagNone, nil }
func (emptyModel) Buddy(path IndexPath) (IndexPath, error)      { return path, nil }
func (emptyModel) RoleNames() (map[Role][]byte, error)          { return nil, nil }
func (emptyModel) CanFetchMore(IndexPath) (bool, error)         { return false, nil }
func (emptyModel) FetchMore(IndexPath) error                    { return nil }
func (emptyModel) Submit() (bool, error)                        { return false, nil }
func (emptyModel) Subscribe(ChangeListener) func()              { return func() {} }
