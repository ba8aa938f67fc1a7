package connector

import (
	"sync"

	"github.com/narvanalabs/hellostack/internal/store"
)

// Handle holds a connection that may be established after shutdown has
// begun. It is registered for shutdown before connecting; a connection set
// after Close is closed straight away.
type Handle struct {
	mu     sync.Mutex
	conn   store.Conn
	closed bool
}

// Set stores conn. It returns false, after closing conn, if the handle is
// already closed.
func (h *Handle) Set(conn store.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		_ = conn.Close()
		return false
	}
	h.conn = conn
	return true
}

// Conn returns the stored connection, or nil.
func (h *Handle) Conn() store.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

// Close closes the stored connection, if any. It is safe to call more than
// once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.conn == nil {
		return nil
	}
	return h.conn.Close()
}
