// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type pendingResult struct {
	value Variant
	err   error
}

type pendingRequest struct {
	resultCh chan pendingResult
}

// ClientSession is one connected replica: a bootstrapped mirror of the
// authoritative model plus the machinery to issue correlated value queries
// against it (§4.4).
type ClientSession struct {
	fr     *FrameReader
	fw     *FrameWriter
	closer io.Closer
	log    zerolog.Logger

	tree *Tree

	mu       sync.Mutex
	pending  map[uuid.UUID]*pendingRequest
	closed   bool
	closeErr error

	listenersMu sync.Mutex
	listeners   []ChangeListener
}

// Dial wraps conn as a client session, starts its reader loop, and runs
// bootstrap to completion before returning (§4.3: "Bootstrap must complete
// before any user-visible query returns").
func Dial(conn io.ReadWriteCloser, log zerolog.Logger) (*ClientSession, error) {
	c := &ClientSession{
		fr:      NewFrameReader(conn, 0),
		fw:      NewFrameWriter(conn),
		closer:  conn,
		log:     log,
		tree:    NewTree(),
		pending: make(map[uuid.UUID]*pendingRequest),
	}
	go c.readLoop()
	if err := c.bootstrap(); err != nil {
		c.fail(err)
		return nil, err
	}
	return c, nil
}

// Subscribe registers listener for local change notifications synthesized
// as the replica applies signals, and returns a function that unsubscribes
// it.
func (c *ClientSession) Subscribe(listener ChangeListener) (unsubscribe func()) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, listener)
	c.listenersMu.Unlock()
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		for i, l := range c.listeners {
			if l == listener {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *ClientSession) forEachListener(f func(ChangeListener)) {
	c.listenersMu.Lock()
	listeners := append([]ChangeListener(nil), c.listeners...)
	c.listenersMu.Unlock()
	for _, l := range listeners {
		f(l)
	}
}

// readLoop is the single task that owns the socket's read side. It applies
// signals immediately and wakes pending calls on a matching MethodReturn,
// in arrival order, never blocking on a call of its own (§5, §9).
func (c *ClientSession) readLoop() {
	for {
		payload, err := c.fr.ReadFrame()
		if err != nil {
			c.fail(err)
			return
		}
		msg, err := Decode(payload)
		if err != nil {
			c.fail(newProtocolError(err))
			return
		}
		switch msg.Kind {
		case KindEmitSignal:
			if err := c.applySignal(msg); err != nil {
				c.fail(newProtocolError(err))
				return
			}
		case KindMethodReturn:
			c.resolve(msg.ID, msg.ReturnValue, nil)
		default:
			c.fail(newProtocolError(fmt.Errorf("%w: client received kind %v", ErrUnknownMessageKind, msg.Kind)))
			return
		}
	}
}

func (c *ClientSession) resolve(id uuid.UUID, value Variant, err error) {
	c.mu.Lock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	req.resultCh <- pendingResult{value: value, err: err}
}

// fail closes the session once, failing every pending call with err.
func (c *ClientSession) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, req := range pending {
		req.resultCh <- pendingResult{err: err}
	}
	c.closer.Close()
	c.log.Error().Err(err).Msg("remotemodel: client session closed")
}

// Close tears down the session, failing any pending calls with
// ErrTransportClosed.
func (c *ClientSession) Close() error {
	c.fail(ErrTransportClosed)
	return nil
}

// call issues a MethodCall and blocks the caller until its MethodReturn
// arrives, without blocking readLoop (§4.4, §5).
func (c *ClientSession) call(method string, args []Variant) (Variant, error) {
	msg := NewMethodCall(method, args)
	req := &pendingRequest{resultCh: make(chan pendingResult, 1)}

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		if err == nil {
			err = ErrTransportClosed
		}
		return Variant{}, err
	}
	if _, exists := c.pending[msg.ID]; exists {
		c.mu.Unlock()
		return Variant{}, newProtocolError(ErrDuplicateRequestID)
	}
	c.pending[msg.ID] = req
	c.mu.Unlock()

	payload, err := Encode(msg)
	if err != nil {
		c.dropPending(msg.ID)
		return Variant{}, err
	}
	if err := c.fw.WriteFrame(payload); err != nil {
		c.dropPending(msg.ID)
		return Variant{}, err
	}

	res := <-req.resultCh
	return res.value, res.err
}

func (c *ClientSession) dropPending(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		delete(c.pending, id)
	}
}

// --- structural queries answered locally from the replica tree (§6.3) ---

// RowCount returns the row count of the node at path, derived from the
// local mirror without network I/O.
func (c *ClientSession) RowCount(path IndexPath) (int32, error) {
	id, ok := c.tree.Lookup(path)
	if !ok {
		return 0, fmt.Errorf("remotemodel: rowCount: %w: no such path %v", ErrStateInvariantViolated, path)
	}
	return c.tree.RowCount(id), nil
}

// ColumnCount is the column-axis symmetric twin of RowCount.
func (c *ClientSession) ColumnCount(path IndexPath) (int32, error) {
	id, ok := c.tree.Lookup(path)
	if !ok {
		return 0, fmt.Errorf("remotemodel: columnCount: %w: no such path %v", ErrStateInvariantViolated, path)
	}
	return c.tree.ColumnCount(id), nil
}

// HasChildren answers from the local mirror.
func (c *ClientSession) HasChildren(path IndexPath) (bool, error) {
	id, ok := c.tree.Lookup(path)
	if !ok {
		return false, fmt.Errorf("remotemodel: hasChildren: %w: no such path %v", ErrStateInvariantViolated, path)
	}
	return c.tree.HasChildren(id), nil
}

// Index performs a local sibling lookup and returns the path to (row, col)
// under parent.
func (c *ClientSession) Index(row, col int32, parent IndexPath) (IndexPath, bool) {
	pid, ok := c.tree.Lookup(parent)
	if !ok {
		return nil, false
	}
	if _, ok := c.tree.Index(row, col, pid); !ok {
		return nil, false
	}
	return parent.Child(row, col), true
}

// Parent returns path's parent path.
func (c *ClientSession) Parent(path IndexPath) (IndexPath, bool) {
	return path.Parent()
}

// Sibling returns the path at (row, col) sharing path's parent.
func (c *ClientSession) Sibling(path IndexPath, row, col int32) (IndexPath, bool) {
	parent, ok := path.Parent()
	if !ok {
		return nil, false
	}
	return c.Index(row, col, parent)
}

// --- value queries, each a single correlated remote call (§6.3) ---

// Data issues a remote data(path, role) call.
func (c *ClientSession) Data(path IndexPath, role Role) (Variant, error) {
	return c.call("data", []Variant{path.ToVariant(), Int32Variant(int32(role))})
}

// HeaderData issues a remote headerData(section, orientation, role) call.
func (c *ClientSession) HeaderData(section int32, orientation Orientation, role Role) (Variant, error) {
	return c.call("headerData", []Variant{Int32Variant(section), Int32Variant(int32(orientation)), Int32Variant(int32(role))})
}

// ItemData issues a single batched itemData(path) call rather than one
// data() round trip per role (§4 supplement, grounded on the original's
// itemData cache).
func (c *ClientSession) ItemData(path IndexPath) (map[Role]Variant, error) {
	v, err := c.call("itemData", []Variant{path.ToVariant()})
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, newProtocolError(fmt.Errorf("%w: itemData: expected map", ErrMalformedFrame))
	}
	out := make(map[Role]Variant, len(m))
	for k, val := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, newProtocolError(fmt.Errorf("%w: itemData: non-numeric role key %q", ErrMalformedFrame, k))
		}
		out[Role(n)] = val
	}
	return out, nil
}

// Flags issues a remote flags(path) call.
func (c *ClientSession) Flags(path IndexPath) (ItemFlag, error) {
	v, err := c.call("flags", []Variant{path.ToVariant()})
	if err != nil {
		return 0, err
	}
	i, ok := v.Int32()
	if !ok {
		return 0, newProtocolError(fmt.Errorf("%w: flags: expected int32", ErrMalformedFrame))
	}
	return ItemFlag(i), nil
}

// Buddy issues a remote buddy(path) call and decodes the IndexPath it
// returns (§4 supplement).
func (c *ClientSession) Buddy(path IndexPath) (IndexPath, error) {
	v, err := c.call("buddy", []Variant{path.ToVariant()})
	if err != nil {
		return nil, err
	}
	return IndexPathFromVariant(v)
}

// RoleNames issues a remote roleNames() call.
func (c *ClientSession) RoleNames() (map[Role][]byte, error) {
	v, err := c.call("roleNames", nil)
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, newProtocolError(fmt.Errorf("%w: roleNames: expected map", ErrMalformedFrame))
	}
	out := make(map[Role][]byte, len(m))
	for k, val := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, newProtocolError(fmt.Errorf("%w: roleNames: non-numeric role key %q", ErrMalformedFrame, k))
		}
		b, ok := val.Bytes()
		if !ok {
			return nil, newProtocolError(fmt.Errorf("%w: roleNames: expected bytes", ErrMalformedFrame))
		}
		out[Role(n)] = b
	}
	return out, nil
}

// CanFetchMore issues a remote canFetchMore(path) call.
func (c *ClientSession) CanFetchMore(path IndexPath) (bool, error) {
	v, err := c.call("canFetchMore", []Variant{path.ToVariant()})
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, newProtocolError(fmt.Errorf("%w: canFetchMore: expected bool", ErrMalformedFrame))
	}
	return b, nil
}

// FetchMore issues a remote fetchMore(path) call.
func (c *ClientSession) FetchMore(path IndexPath) error {
	_, err := c.call("fetchMore", []Variant{path.ToVariant()})
	return err
}

// Submit issues a remote submit() call.
func (c *ClientSession) Submit() (bool, error) {
	v, err := c.call("submit", nil)
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, newProtocolError(fmt.Errorf("%w: submit: expected bool", ErrMalformedFrame))
	}
	return b, nil
}

// --- bootstrap (§4.3) ---

func (c *ClientSession) bootstrap() error {
	return c.bootstrapNode(c.tree.Root(), IndexPath{})
}

func (c *ClientSession) rebootstrap() {
	if err := c.bootstrap(); err != nil {
		c.fail(err)
	}
}

func (c *ClientSession) bootstrapNode(id nodeID, path IndexPath) error {
	hasChildrenV, err := c.call("hasChildren", []Variant{path.ToVariant()})
	if err != nil {
		return err
	}
	hasChildren, ok := hasChildrenV.Bool()
	if !ok {
		return newProtocolError(fmt.Errorf("%w: hasChildren: expected bool", ErrMalformedFrame))
	}
	if !hasChildren {
		return nil
	}

	rowsV, err := c.call("rowCount", []Variant{path.ToVariant()})
	if err != nil {
		return err
	}
	rows, ok := rowsV.Int32()
	if !ok {
		return newProtocolError(fmt.Errorf("%w: rowCount: expected int32", ErrMalformedFrame))
	}

	colsV, err := c.call("columnCount", []Variant{path.ToVariant()})
	if err != nil {
		return err
	}
	cols, ok := colsV.Int32()
	if !ok {
		return newProtocolError(fmt.Errorf("%w: columnCount: expected int32", ErrMalformedFrame))
	}

	if rows <= 0 || cols <= 0 {
		return nil
	}

	c.forEachListener(func(l ChangeListener) { l.RowsAboutToBeInserted(path, 0, rows-1) })
	if err := c.tree.ApplyRowsInserted(id, 0, rows-1, cols); err != nil {
		return err
	}
	c.tree.RecordColumnCount(id, cols)
	c.tree.RecordRowCount(id, rows)
	c.forEachListener(func(l ChangeListener) { l.RowsInserted(path, 0, rows-1) })

	for r := int32(0); r < rows; r++ {
		for col := int32(0); col < cols; col++ {
			childID, ok := c.tree.Index(r, col, id)
			if !ok {
				return fmt.Errorf("remotemodel: bootstrap: %w: missing child (%d,%d)", ErrStateInvariantViolated, r, col)
			}
			if err := c.bootstrapNode(childID, path.Child(r, col)); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- signal dispatch (§4.4) ---

func (c *ClientSession) applySignal(msg Message) error {
	switch msg.SignalName {
	case "dataChanged":
		return c.onDataChanged(msg.Args)
	case "headerDataChanged":
		return c.onHeaderDataChanged(msg.Args)
	case "layoutAboutToBeChanged":
		c.forEachListener(func(l ChangeListener) { l.LayoutAboutToBeChanged() })
		return nil
	case "layoutChanged":
		c.forEachListener(func(l ChangeListener) { l.LayoutChanged() })
		return nil
	case "rowsAboutToBeInserted":
		return c.onRowsAboutToBeInserted(msg.Args)
	case "rowsInserted":
		return c.onRowsInserted(msg.Args)
	case "rowsAboutToBeRemoved":
		return c.onRowsAboutToBeRemoved(msg.Args)
	case "rowsRemoved":
		return c.onRowsRemoved(msg.Args)
	case "rowsAboutToBeMoved":
		return c.onRowsAboutToBeMoved(msg.Args)
	case "rowsMoved":
		return c.onRowsMoved(msg.Args)
	case "columnsAboutToBeInserted":
		return c.onColumnsAboutToBeInserted(msg.Args)
	case "columnsInserted":
		return c.onColumnsInserted(msg.Args)
	case "columnsAboutToBeRemoved":
		return c.onColumnsAboutToBeRemoved(msg.Args)
	case "columnsRemoved":
		return c.onColumnsRemoved(msg.Args)
	case "columnsAboutToBeMoved":
		return c.onColumnsAboutToBeMoved(msg.Args)
	case "columnsMoved":
		return c.onColumnsMoved(msg.Args)
	case "modelAboutToBeReset":
		c.forEachListener(func(l ChangeListener) { l.ModelAboutToBeReset() })
		return nil
	case "modelReset":
		c.tree.Reset()
		c.forEachListener(func(l ChangeListener) { l.ModelReset() })
		// Re-bootstrapping issues remote calls; doing that from this
		// goroutine (the only one that can deliver their replies) would
		// deadlock, so it runs as a separate task, same as the deferred
		// columnCount/rowCount lookups in onRowsInserted/onColumnsInserted.
		go c.rebootstrap()
		return nil
	case "modelDestroyed":
		c.forEachListener(func(l ChangeListener) { l.ModelDestroyed() })
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSignal, msg.SignalName)
	}
}

func argPath(args []Variant, i int) (IndexPath, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrMalformedFrame, i)
	}
	return IndexPathFromVariant(args[i])
}

func argInt32(args []Variant, i int) (int32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing argument %d", ErrMalformedFrame, i)
	}
	v, ok := args[i].Int32()
	if !ok {
		return 0, fmt.Errorf("%w: argument %d: expected int32", ErrMalformedFrame, i)
	}
	return v, nil
}

func (c *ClientSession) onDataChanged(args []Variant) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: dataChanged: want 3 args, got %d", ErrMalformedFrame, len(args))
	}
	topLeft, err := IndexPathFromVariant(args[0])
	if err != nil {
		return err
	}
	bottomRight, err := IndexPathFromVariant(args[1])
	if err != nil {
		return err
	}
	roleList, ok := args[2].List()
	if !ok {
		return fmt.Errorf("%w: dataChanged: roles: expected list", ErrMalformedFrame)
	}
	roles := make([]Role, len(roleList))
	for i, rv := range roleList {
		ri, ok := rv.Int32()
		if !ok {
			return fmt.Errorf("%w: dataChanged: role %d: expected int32", ErrMalformedFrame, i)
		}
		roles[i] = Role(ri)
	}
	c.forEachListener(func(l ChangeListener) { l.DataChanged(topLeft, bottomRight, roles) })
	return nil
}

func (c *ClientSession) onHeaderDataChanged(args []Variant) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: headerDataChanged: want 3 args, got %d", ErrMalformedFrame, len(args))
	}
	orientation, err := argInt32(args, 0)
	if err != nil {
		return err
	}
	first, err := argInt32(args, 1)
	if err != nil {
		return err
	}
	last, err := argInt32(args, 2)
	if err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) { l.HeaderDataChanged(Orientation(orientation), first, last) })
	return nil
}

func (c *ClientSession) onRowsAboutToBeInserted(args []Variant) error {
	parent, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("rowsAboutToBeInserted: %w", err)
	}
	c.forEachListener(func(l ChangeListener) { l.RowsAboutToBeInserted(parent, first, last) })
	return nil
}

func (c *ClientSession) onRowsInserted(args []Variant) error {
	parentPath, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("rowsInserted: %w", err)
	}
	parentID, ok := c.tree.Lookup(parentPath)
	if !ok {
		return fmt.Errorf("rowsInserted: %w: unknown parent %v", ErrStateInvariantViolated, parentPath)
	}

	if c.tree.HasChildren(parentID) {
		return c.finishRowsInserted(parentID, parentPath, first, last, c.tree.ColumnCount(parentID))
	}
	if cols, ok := c.tree.KnownColumnCount(parentID); ok {
		return c.finishRowsInserted(parentID, parentPath, first, last, cols)
	}
	// Never-visited, currently childless parent: the column count can only
	// come from the server, but calling out from readLoop would deadlock
	// (this goroutine is the only one that can deliver the reply). Defer
	// to a helper task and apply the insertion once it answers (§9 Open
	// Question resolution).
	go c.finishRowsInsertedAsync(parentID, parentPath, first, last)
	return nil
}

func (c *ClientSession) finishRowsInsertedAsync(parentID nodeID, parentPath IndexPath, first, last int32) {
	v, err := c.call("columnCount", []Variant{parentPath.ToVariant()})
	if err != nil {
		c.log.Error().Err(err).Str("signal", "rowsInserted").Msg("remotemodel: deferred columnCount lookup failed")
		return
	}
	cols, ok := v.Int32()
	if !ok {
		c.fail(newProtocolError(fmt.Errorf("%w: deferred columnCount: expected int32", ErrMalformedFrame)))
		return
	}
	if err := c.finishRowsInserted(parentID, parentPath, first, last, cols); err != nil {
		c.fail(newProtocolError(err))
	}
}

func (c *ClientSession) finishRowsInserted(parentID nodeID, parentPath IndexPath, first, last, cols int32) error {
	if err := c.tree.ApplyRowsInserted(parentID, first, last, cols); err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) { l.RowsInserted(parentPath, first, last) })
	return nil
}

func (c *ClientSession) onRowsAboutToBeRemoved(args []Variant) error {
	parent, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("rowsAboutToBeRemoved: %w", err)
	}
	c.forEachListener(func(l ChangeListener) { l.RowsAboutToBeRemoved(parent, first, last) })
	return nil
}

func (c *ClientSession) onRowsRemoved(args []Variant) error {
	parentPath, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("rowsRemoved: %w", err)
	}
	parentID, ok := c.tree.Lookup(parentPath)
	if !ok {
		return fmt.Errorf("rowsRemoved: %w: unknown parent %v", ErrStateInvariantViolated, parentPath)
	}
	if err := c.tree.ApplyRowsRemoved(parentID, first, last); err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) { l.RowsRemoved(parentPath, first, last) })
	return nil
}

func (c *ClientSession) onRowsAboutToBeMoved(args []Variant) error {
	srcParent, srcFirst, srcLast, dstParent, dstRow, err := decodeMove(args)
	if err != nil {
		return fmt.Errorf("rowsAboutToBeMoved: %w", err)
	}
	c.forEachListener(func(l ChangeListener) { l.RowsAboutToBeMoved(srcParent, srcFirst, srcLast, dstParent, dstRow) })
	return nil
}

func (c *ClientSession) onRowsMoved(args []Variant) error {
	srcParentPath, srcFirst, srcLast, dstParentPath, dstRow, err := decodeMove(args)
	if err != nil {
		return fmt.Errorf("rowsMoved: %w", err)
	}
	srcParentID, ok := c.tree.Lookup(srcParentPath)
	if !ok {
		return fmt.Errorf("rowsMoved: %w: unknown source parent %v", ErrStateInvariantViolated, srcParentPath)
	}
	dstParentID, ok := c.tree.Lookup(dstParentPath)
	if !ok {
		return fmt.Errorf("rowsMoved: %w: unknown destination parent %v", ErrStateInvariantViolated, dstParentPath)
	}
	if err := c.tree.ApplyRowsMoved(srcParentID, srcFirst, srcLast, dstParentID, dstRow); err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) { l.RowsMoved(srcParentPath, srcFirst, srcLast, dstParentPath, dstRow) })
	return nil
}

func (c *ClientSession) onColumnsAboutToBeInserted(args []Variant) error {
	parent, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("columnsAboutToBeInserted: %w", err)
	}
	c.forEachListener(func(l ChangeListener) { l.ColumnsAboutToBeInserted(parent, first, last) })
	return nil
}

func (c *ClientSession) onColumnsInserted(args []Variant) error {
	parentPath, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("columnsInserted: %w", err)
	}
	parentID, ok := c.tree.Lookup(parentPath)
	if !ok {
		return fmt.Errorf("columnsInserted: %w: unknown parent %v", ErrStateInvariantViolated, parentPath)
	}

	if c.tree.HasChildren(parentID) {
		return c.finishColumnsInserted(parentID, parentPath, first, last, c.tree.RowCount(parentID))
	}
	if rows, ok := c.tree.KnownRowCount(parentID); ok {
		return c.finishColumnsInserted(parentID, parentPath, first, last, rows)
	}
	go c.finishColumnsInsertedAsync(parentID, parentPath, first, last)
	return nil
}

func (c *ClientSession) finishColumnsInsertedAsync(parentID nodeID, parentPath IndexPath, first, last int32) {
	v, err := c.call("rowCount", []Variant{parentPath.ToVariant()})
	if err != nil {
		c.log.Error().Err(err).Str("signal", "columnsInserted").Msg("remotemodel: deferred rowCount lookup failed")
		return
	}
	rows, ok := v.Int32()
	if !ok {
		c.fail(newProtocolError(fmt.Errorf("%w: deferred rowCount: expected int32", ErrMalformedFrame)))
		return
	}
	if err := c.finishColumnsInserted(parentID, parentPath, first, last, rows); err != nil {
		c.fail(newProtocolError(err))
	}
}

func (c *ClientSession) finishColumnsInserted(parentID nodeID, parentPath IndexPath, first, last, rows int32) error {
	if err := c.tree.ApplyColumnsInserted(parentID, first, last, rows); err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) { l.ColumnsInserted(parentPath, first, last) })
	return nil
}

func (c *ClientSession) onColumnsAboutToBeRemoved(args []Variant) error {
	parent, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("columnsAboutToBeRemoved: %w", err)
	}
	c.forEachListener(func(l ChangeListener) { l.ColumnsAboutToBeRemoved(parent, first, last) })
	return nil
}

func (c *ClientSession) onColumnsRemoved(args []Variant) error {
	parentPath, first, last, err := decodeRange(args)
	if err != nil {
		return fmt.Errorf("columnsRemoved: %w", err)
	}
	parentID, ok := c.tree.Lookup(parentPath)
	if !ok {
		return fmt.Errorf("columnsRemoved: %w: unknown parent %v", ErrStateInvariantViolated, parentPath)
	}
	if err := c.tree.ApplyColumnsRemoved(parentID, first, last); err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) { l.ColumnsRemoved(parentPath, first, last) })
	return nil
}

func (c *ClientSession) onColumnsAboutToBeMoved(args []Variant) error {
	srcParent, srcFirst, srcLast, dstParent, dstCol, err := decodeMove(args)
	if err != nil {
		return fmt.Errorf("columnsAboutToBeMoved: %w", err)
	}
	c.forEachListener(func(l ChangeListener) {
		l.ColumnsAboutToBeMoved(srcParent, srcFirst, srcLast, dstParent, dstCol)
	})
	return nil
}

func (c *ClientSession) onColumnsMoved(args []Variant) error {
	srcParentPath, srcFirst, srcLast, dstParentPath, dstCol, err := decodeMove(args)
	if err != nil {
		return fmt.Errorf("columnsMoved: %w", err)
	}
	srcParentID, ok := c.tree.Lookup(srcParentPath)
	if !ok {
		return fmt.Errorf("columnsMoved: %w: unknown source parent %v", ErrStateInvariantViolated, srcParentPath)
	}
	dstParentID, ok := c.tree.Lookup(dstParentPath)
	if !ok {
		return fmt.Errorf("columnsMoved: %w: unknown destination parent %v", ErrStateInvariantViolated, dstParentPath)
	}
	if err := c.tree.ApplyColumnsMoved(srcParentID, srcFirst, srcLast, dstParentID, dstCol); err != nil {
		return err
	}
	c.forEachListener(func(l ChangeListener) {
		l.ColumnsMoved(srcParentPath, srcFirst, srcLast, dstParentPath, dstCol)
	})
	return nil
}

func decodeRange(args []Variant) (parent IndexPath, first, last int32, err error) {
	if len(args) != 3 {
		return nil, 0, 0, fmt.Errorf("%w: want 3 args, got %d", ErrMalformedFrame, len(args))
	}
	parent, err = argPath(args, 0)
	if err != nil {
		return nil, 0, 0, err
	}
	first, err = argInt32(args, 1)
	if err != nil {
		return nil, 0, 0, err
	}
	last, err = argInt32(args, 2)
	if err != nil {
		return nil, 0, 0, err
	}
	return parent, first, last, nil
}

func decodeMove(args []Variant) (srcParent IndexPath, srcFirst, srcLast int32, dstParent IndexPath, dstPos int32, err error) {
	if len(args) != 5 {
		return nil, 0, 0, nil, 0, fmt.Errorf("%w: want 5 args, got %d", ErrMalformedFrame, len(args))
	}
	srcParent, err = argPath(args, 0)
	if err != nil {
		return
	}
	srcFirst, err = argInt32(args, 1)
	if err != nil {
		return
	}
	srcLast, err = argInt32(args, 2)
	if err != nil {
		return
	}
	dstParent, err = argPath(args, 3)
	if err != nil {
		return
	}
	dstPos, err = argInt32(args, 4)
	return
}
