package connector

import "testing"

func TestHandleClosesStoredConn(t *testing.T) {
	var h Handle
	conn := &fakeConn{}

	if !h.Set(conn) {
		t.Fatal("Set on an open handle should keep the connection")
	}
	if h.Conn() != conn {
		t.Error("Conn did not return the stored connection")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !conn.closed {
		t.Error("stored connection was not closed")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestHandleSetAfterClose(t *testing.T) {
	var h Handle
	if err := h.Close(); err != nil {
		t.Fatalf("Close on an empty handle: %v", err)
	}

	conn := &fakeConn{}
	if h.Set(conn) {
		t.Error("Set after Close should refuse the connection")
	}
	if !conn.closed {
		t.Error("late connection was not closed")
	}
	if h.Conn() != nil {
		t.Error("closed handle should not hold a connection")
	}
}
