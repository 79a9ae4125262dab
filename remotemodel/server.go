// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// outboundCap bounds a session's pending-broadcast queue. A session whose
// writer falls this far behind is disconnected rather than allowed to
// reorder or unbounded-grow (§9: "slow clients must not reorder messages
// seen by fast clients, but may be disconnected").
const outboundCap = 1024

// methodHandler answers one MethodCall against an AuthoritativeModel.
type methodHandler func(model AuthoritativeModel, args []Variant) (Variant, error)

var methodHandlers = map[string]methodHandler{
	"index":        handleIndex,
	"parent":       handleParent,
	"sibling":      handleSibling,
	"rowCount":     handleRowCount,
	"columnCount":  handleColumnCount,
	"hasChildren":  handleHasChildren,
	"data":         handleData,
	"headerData":   handleHeaderData,
	"itemData":     handleItemData,
	"flags":        handleFlags,
	"buddy":        handleBuddy,
	"canFetchMore": handleCanFetchMore,
	"fetchMore":    handleFetchMore,
	"submit":       handleSubmit,
	"roleNames":    handleRoleNames,
}

// ServerSession is one accepted connection, reading calls and writing both
// their returns and broadcast signals (§4.5, §3.4).
type ServerSession struct {
	conn  net.Conn
	fr    *FrameReader
	fw    *FrameWriter
	log   zerolog.Logger
	model func() AuthoritativeModel

	outbound chan []byte
	done     chan struct{}
	closeErr error
	closeMu  sync.Mutex
}

func newServerSession(conn net.Conn, model func() AuthoritativeModel, log zerolog.Logger) *ServerSession {
	return &ServerSession{
		conn:     conn,
		fr:       NewFrameReader(conn, 0),
		fw:       NewFrameWriter(conn),
		log:      log,
		model:    model,
		outbound: make(chan []byte, outboundCap),
		done:     make(chan struct{}),
	}
}

// enqueue submits payload for broadcast, dropping the connection if the
// session's outbound queue is full rather than blocking the broadcaster or
// reordering relative to other sessions.
func (s *ServerSession) enqueue(payload []byte) {
	select {
	case s.outbound <- payload:
	default:
		s.closeWith(fmt.Errorf("remotemodel: session outbound queue full"))
	}
}

func (s *ServerSession) closeWith(err error) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.closeErr = err
	close(s.done)
	s.conn.Close()
}

// writeLoop is the single task serializing writes to this session's
// socket: per-session FIFO order is the queue's enqueue order, preserved
// regardless of how fast the broadcaster or request handlers produce
// frames (§9).
func (s *ServerSession) writeLoop() {
	for {
		select {
		case payload := <-s.outbound:
			if err := s.fw.WriteFrame(payload); err != nil {
				s.closeWith(err)
				return
			}
		case <-s.done:
			return
		}
	}
}

// readLoop decodes inbound MethodCall frames and dispatches them; any
// other frame kind, or an unknown method name, is a protocol error that
// closes the session (§4.5, §7).
func (s *ServerSession) readLoop() {
	defer s.closeWith(io.EOF)
	for {
		payload, err := s.fr.ReadFrame()
		if err != nil {
			s.closeWith(err)
			return
		}
		msg, err := Decode(payload)
		if err != nil {
			s.log.Error().Err(err).Msg("remotemodel: malformed message")
			s.closeWith(newProtocolError(err))
			return
		}
		if msg.Kind != KindMethodCall {
			s.closeWith(newProtocolError(fmt.Errorf("%w: server received kind %v", ErrUnknownMessageKind, msg.Kind)))
			return
		}
		if err := s.dispatch(msg); err != nil {
			s.log.Error().Err(err).Str("method", msg.MethodName).Msg("remotemodel: method call failed")
			s.closeWith(newProtocolError(err))
			return
		}
	}
}

func (s *ServerSession) dispatch(msg Message) error {
	handler, ok := methodHandlers[msg.MethodName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, msg.MethodName)
	}
	result, err := handler(s.model(), msg.Args)
	if err != nil {
		return err
	}
	reply, err := Encode(NewMethodReturn(msg.ID, result))
	if err != nil {
		return err
	}
	s.enqueue(reply)
	return nil
}

// Server listens for connections and dispatches each against one
// AuthoritativeModel, broadcasting its change notifications to every live
// session via a ModelAdapter (§2: C5).
type Server struct {
	listener net.Listener
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[*ServerSession]struct{}

	adapter *ModelAdapter
}

// NewServer wraps ln, serving model to every accepted connection.
func NewServer(ln net.Listener, model AuthoritativeModel, log zerolog.Logger) *Server {
	srv := &Server{
		listener: ln,
		log:      log,
		sessions: make(map[*ServerSession]struct{}),
	}
	srv.adapter = NewModelAdapter(model, srv.broadcast, log)
	return srv
}

// Serve accepts connections until the listener closes or ctx-driven
// shutdown calls Close; it returns the first error.
func (srv *Server) Serve() error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return err
		}
		srv.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("remotemodel: accepted connection")
		session := newServerSession(conn, srv.adapter.CurrentModel, srv.log)
		srv.addSession(session)
		go func() {
			session.readLoop()
			srv.removeSession(session)
		}()
		go session.writeLoop()
	}
}

func (srv *Server) addSession(s *ServerSession) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.sessions[s] = struct{}{}
}

func (srv *Server) removeSession(s *ServerSession) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.sessions, s)
}

// broadcast enqueues payload on every live session, in the order the
// adapter observed the underlying emission (§4.6: "Broadcast ordering must
// preserve the model's emission order across all receivers").
func (srv *Server) broadcast(payload []byte) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for s := range srv.sessions {
		s.enqueue(payload)
	}
}

// Close stops accepting new connections and closes every live session.
func (srv *Server) Close() error {
	err := srv.listener.Close()
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for s := range srv.sessions {
		s.closeWith(ErrTransportClosed)
	}
	return err
}

// --- method handlers (§4.5) ---

func handleIndex(model AuthoritativeModel, args []Variant) (Variant, error) {
	if len(args) != 3 {
		return Variant{}, fmt.Errorf("%w: index: want 3 args", ErrMalformedFrame)
	}
	row, ok1 := args[0].Int32()
	col, ok2 := args[1].Int32()
	if !ok1 || !ok2 {
		return Variant{}, fmt.Errorf("%w: index: row/col", ErrMalformedFrame)
	}
	parent, err := IndexPathFromVariant(args[2])
	if err != nil {
		return Variant{}, err
	}
	return parent.Child(row, col).ToVariant(), nil
}

func handleParent(model AuthoritativeModel, args []Variant) (Variant, error) {
	if len(args) != 1 {
		return Variant{}, fmt.Errorf("%w: parent: want 1 arg", ErrMalformedFrame)
	}
	path, err := IndexPathFromVariant(args[0])
	if err != nil {
		return Variant{}, err
	}
	parent, ok := path.Parent()
	if !ok {
		parent = IndexPath{}
	}
	return parent.ToVariant(), nil
}

func handleSibling(model AuthoritativeModel, args []Variant) (Variant, error) {
	if len(args) != 3 {
		return Variant{}, fmt.Errorf("%w: sibling: want 3 args", ErrMalformedFrame)
	}
	row, ok1 := args[0].Int32()
	col, ok2 := args[1].Int32()
	if !ok1 || !ok2 {
		return Variant{}, fmt.Errorf("%w: sibling: row/col", ErrMalformedFrame)
	}
	path, err := IndexPathFromVariant(args[2])
	if err != nil {
		return Variant{}, err
	}
	parent, ok := path.Parent()
	if !ok {
		parent = IndexPath{}
	}
	return parent.Child(row, col).ToVariant(), nil
}

func pathArg(args []Variant, i int) (IndexPath, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: missing path argument", ErrMalformedFrame)
	}
	return IndexPathFromVariant(args[i])
}

func handleRowCount(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	n, err := model.RowCount(path)
	if err != nil {
		return Variant{}, err
	}
	return Int32Variant(n), nil
}

func handleColumnCount(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	n, err := model.ColumnCount(path)
	if err != nil {
		return Variant{}, err
	}
	return Int32Variant(n), nil
}

func handleHasChildren(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	b, err := model.HasChildren(path)
	if err != nil {
		return Variant{}, err
	}
	return BoolVariant(b), nil
}

func handleData(model AuthoritativeModel, args []Variant) (Variant, error) {
	if len(args) != 2 {
		return Variant{}, fmt.Errorf("%w: data: want 2 args", ErrMalformedFrame)
	}
	path, err := IndexPathFromVariant(args[0])
	if err != nil {
		return Variant{}, err
	}
	role, ok := args[1].Int32()
	if !ok {
		return Variant{}, fmt.Errorf("%w: data: role", ErrMalformedFrame)
	}
	return model.Data(path, Role(role))
}

func handleHeaderData(model AuthoritativeModel, args []Variant) (Variant, error) {
	if len(args) != 3 {
		return Variant{}, fmt.Errorf("%w: headerData: want 3 args", ErrMalformedFrame)
	}
	section, ok1 := args[0].Int32()
	orientation, ok2 := args[1].Int32()
	role, ok3 := args[2].Int32()
	if !ok1 || !ok2 || !ok3 {
		return Variant{}, fmt.Errorf("%w: headerData: section/orientation/role", ErrMalformedFrame)
	}
	return model.HeaderData(section, Orientation(orientation), Role(role))
}

func handleItemData(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	data, err := model.ItemData(path)
	if err != nil {
		return Variant{}, err
	}
	m := make(map[string]Variant, len(data))
	for role, v := range data {
		m[strconv.Itoa(int(role))] = v
	}
	return MapVariant(m), nil
}

func handleFlags(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	f, err := model.Flags(path)
	if err != nil {
		return Variant{}, err
	}
	return Int32Variant(int32(f)), nil
}

func handleBuddy(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	buddy, err := model.Buddy(path)
	if err != nil {
		return Variant{}, err
	}
	return buddy.ToVariant(), nil
}

func handleCanFetchMore(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	b, err := model.CanFetchMore(path)
	if err != nil {
		return Variant{}, err
	}
	return BoolVariant(b), nil
}

func handleFetchMore(model AuthoritativeModel, args []Variant) (Variant, error) {
	path, err := pathArg(args, 0)
	if err != nil {
		return Variant{}, err
	}
	if err := model.FetchMore(path); err != nil {
		return Variant{}, err
	}
	return NullVariant(), nil
}

func handleSubmit(model AuthoritativeModel, args []Variant) (Variant, error) {
	ok, err := model.Submit()
	if err != nil {
		return Variant{}, err
	}
	return BoolVariant(ok), nil
}

func handleRoleNames(model AuthoritativeModel, args []Variant) (Variant, error) {
	names, err := model.RoleNames()
	if err != nil {
		return Variant{}, err
	}
	m := make(map[string]Variant, len(names))
	for role, name := range names {
		m[strconv.Itoa(int(role))] = BytesVariant(name)
	}
	return MapVariant(m), nil
}
