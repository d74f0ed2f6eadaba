package socket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("socket: connection closed")

// Conn is the transport a Namespace writes replies and broadcasts to.
type Conn interface {
	// Send writes one text frame. It must be safe for concurrent use.
	Send(data []byte) error
	// IsOpen reports whether the connection can still be written to.
	IsOpen() bool
}

// wsConn adapts a gorilla websocket connection. gorilla allows one
// concurrent writer, so writes are serialized by mu.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *wsConn) Send(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(c.deadline()); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) IsOpen() bool {
	return !c.closed.Load()
}

func (c *wsConn) ping() error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, c.deadline())
}

func (c *wsConn) deadline() time.Time {
	if c.writeTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.writeTimeout)
}

// close sends a normal closure frame, best effort, and releases the socket.
func (c *wsConn) close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, c.deadline())
	_ = c.ws.Close()
}
