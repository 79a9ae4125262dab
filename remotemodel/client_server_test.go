// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remotemodel_test

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/solidcoredata/dca/remotemodel"
	"github.com/solidcoredata/dca/remotemodel/remotemodeltest"
)

func startServer(t *testing.T, model remotemodel.AuthoritativeModel) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := remotemodel.NewServer(ln, model, zerolog.Nop())
	go srv.Serve()
	return ln.Addr().String(), func() { srv.Close() }
}

func dialClient(t *testing.T, addr string) *remotemodel.ClientSession {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	cs, err := remotemodel.Dial(conn, zerolog.Nop())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return cs
}

func gridCellText(r, c int32) string {
	return fmt.Sprintf("row %d, column %d", r, c)
}

func TestEndToEndStatic4x4(t *testing.T) {
	model := remotemodeltest.NewGrid(4, 4, gridCellText)
	addr, stop := startServer(t, model)
	defer stop()

	cs := dialClient(t, addr)
	defer cs.Close()

	rc, err := cs.RowCount(remotemodel.IndexPath{})
	if err != nil {
		t.Fatal(err)
	}
	if rc != 4 {
		t.Errorf("RowCount(root) = %d, want 4", rc)
	}
	cc, err := cs.ColumnCount(remotemodel.IndexPath{})
	if err != nil {
		t.Fatal(err)
	}
	if cc != 4 {
		t.Errorf("ColumnCount(root) = %d, want 4", cc)
	}

	path := remotemodel.IndexPath{}.Child(0, 0)
	v, err := cs.Data(path, remotemodel.RoleDisplay)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := v.String()
	if !ok || s != "row 0, column 0" {
		t.Errorf("Data(0,0) = %v, want %q", v, "row 0, column 0")
	}

	hasChildren, err := cs.HasChildren(path)
	if err != nil {
		t.Fatal(err)
	}
	if hasChildren {
		t.Error("leaf cell should have no children")
	}
}

func TestEndToEndInsertMiddleRow(t *testing.T) {
	model := remotemodeltest.NewGrid(4, 4, gridCellText)
	addr, stop := startServer(t, model)
	defer stop()

	cs := dialClient(t, addr)
	defer cs.Close()

	rec := newRecordingListener()
	cs.Subscribe(rec)

	if err := model.InsertRows(remotemodel.IndexPath{}, 2, 1, func(r, c int32) string {
		return fmt.Sprintf("new r=%d, c=%d", r, c)
	}); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	rec.waitForRowsInserted(t, 1*time.Second)

	rc, err := cs.RowCount(remotemodel.IndexPath{})
	if err != nil {
		t.Fatal(err)
	}
	if rc != 5 {
		t.Fatalf("RowCount(root) = %d, want 5", rc)
	}

	v, err := cs.Data(remotemodel.IndexPath{}.Child(3, 1), remotemodel.RoleDisplay)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := v.String()
	if s != "row 2, column 1" {
		t.Errorf("Data([(3,1)]) = %q, want %q", s, "row 2, column 1")
	}
}

func TestEndToEndInterleavedCallAndSignal(t *testing.T) {
	base := remotemodeltest.NewGrid(4, 4, gridCellText)
	model := &removeOnDataQuery{MemoryModel: base, atRow: 3, atCol: 3}
	addr, stop := startServer(t, model)
	defer stop()

	cs := dialClient(t, addr)
	defer cs.Close()

	rec := newRecordingListener()
	cs.Subscribe(rec)

	// This call triggers the server to remove row 3 from inside the data
	// handler, so the rowsRemoved signal reaches the wire before this
	// call's MethodReturn (§8 scenario 5).
	if _, err := cs.Data(remotemodel.IndexPath{}.Child(3, 3), remotemodel.RoleDisplay); err != nil {
		t.Fatal(err)
	}

	rc, err := cs.RowCount(remotemodel.IndexPath{})
	if err != nil {
		t.Fatal(err)
	}
	if rc != 3 {
		t.Errorf("RowCount(root) after interleaved removal = %d, want 3", rc)
	}
	if _, ok := cs.Index(3, 3, remotemodel.IndexPath{}); ok {
		t.Error("path [(3,3)] should no longer resolve after interleaved removal")
	}
}

func TestEndToEndReset(t *testing.T) {
	model := remotemodeltest.NewGrid(4, 4, gridCellText)
	addr, stop := startServer(t, model)
	defer stop()

	cs := dialClient(t, addr)
	defer cs.Close()

	rec := newRecordingListener()
	cs.Subscribe(rec)

	model.Reset()
	rec.waitForModelReset(t, 1*time.Second)

	// The replica's re-bootstrap after modelReset runs on its own task
	// (§9 Open Question resolution); give it a moment to settle against the
	// now-empty model before asserting on it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rc, err := cs.RowCount(remotemodel.IndexPath{})
		if err == nil && rc == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("replica did not settle to an empty root after modelReset")
}

// removeOnDataQuery wraps a MemoryModel so the first data() call for
// (atRow, atCol) removes atRow out from under the in-flight call, forcing
// the rowsRemoved signal onto the wire ahead of that call's MethodReturn.
type removeOnDataQuery struct {
	*remotemodeltest.MemoryModel
	atRow, atCol int32
	triggered    bool
}

func (m *removeOnDataQuery) Data(path remotemodel.IndexPath, role remotemodel.Role) (remotemodel.Variant, error) {
	v, err := m.MemoryModel.Data(path, role)
	if err != nil {
		return remotemodel.Variant{}, err
	}
	last, ok := path.Last()
	if ok && !m.triggered && last.Row == m.atRow && last.Column == m.atCol {
		m.triggered = true
		if err := m.MemoryModel.RemoveRows(remotemodel.IndexPath{}, m.atRow, m.atRow); err != nil {
			return remotemodel.Variant{}, err
		}
	}
	return v, nil
}

// recordingListener is a minimal remotemodel.ChangeListener used to wait
// for specific notifications in tests without polling the replica in a
// tight loop.
type recordingListener struct {
	rowsInserted chan struct{}
	modelReset   chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		rowsInserted: make(chan struct{}, 16),
		modelReset:   make(chan struct{}, 16),
	}
}

func (r *recordingListener) waitForRowsInserted(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.rowsInserted:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for rowsInserted notification")
	}
}

func (r *recordingListener) waitForModelReset(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.modelReset:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for modelReset notification")
	}
}

func (r *recordingListener) DataChanged(remotemodel.IndexPath, remotemodel.IndexPath, []remotemodel.Role) {}
func (r *recordingListener) HeaderDataChanged(remotemodel.Orientation, int32, int32)                     {}
func (r *recordingListener) LayoutAboutToBeChanged()                                                     {}
func (r *recordingListener) LayoutChanged()                                                              {}
func (r *recordingListener) RowsAboutToBeInserted(remotemodel.IndexPath, int32, int32)                   {}
func (r *recordingListener) RowsInserted(remotemodel.IndexPath, int32, int32) {
	select {
	case r.rowsInserted <- struct{}{}:
	default:
	}
}
func (r *recordingListener) RowsAboutToBeRemoved(remotemodel.IndexPath, int32, int32) {}
func (r *recordingListener) RowsRemoved(remotemodel.IndexPath, int32, int32)          {}
func (r *recordingListener) RowsAboutToBeMoved(remotemodel.IndexPath, int32, int32, remotemodel.IndexPath, int32) {
}
func (r *recordingListener) RowsMoved(remotemodel.IndexPath, int32, int32, remotemodel.IndexPath, int32) {
}
func (r *recordingListener) ColumnsAboutToBeInserted(remotemodel.IndexPath, int32, int32) {}
func (r *recordingListener) ColumnsInserted(remotemodel.IndexPath, int32, int32)          {}
func (r *recordingListener) ColumnsAboutToBeRemoved(remotemodel.IndexPath, int32, int32)  {}
func (r *recordingListener) ColumnsRemoved(remotemodel.IndexPath, int32, int32)           {}
func (r *recordingListener) ColumnsAboutToBeMoved(remotemodel.IndexPath, int32, int32, remotemodel.IndexPath, int32) {
}
func (r *recordingListener) ColumnsMoved(remotemodel.IndexPath, int32, int32, remotemodel.IndexPath, int32) {
}
func (r *recordingListener) ModelAboutToBeReset() {}
func (r *recordingListener) ModelReset() {
	select {
	case r.modelReset <- struct{}{}:
	default:
	}
}
func (r *recordingListener) ModelDestroyed() {}
