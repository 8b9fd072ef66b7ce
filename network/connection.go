// network/connection.go
package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrQueueFull = errors.New("send queue full")
	ErrClosed    = errors.New("connection closed")
)

const writeTimeout = 5 * time.Second

type Conn interface {
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
	RemoteAddr() net.Addr
}

// WSConn wraps a websocket connection with a bounded outbound queue drained
// by a single writer goroutine. Send never blocks on a slow peer: once the
// queue is full it returns ErrQueueFull and the caller decides the peer's
// fate. All frames are UTF-8 JSON text messages.
type WSConn struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWSConn(conn *websocket.Conn, queueSize int) *WSConn {
	if queueSize <= 0 {
		queueSize = 256
	}
	c := &WSConn{
		conn: conn,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// writeLoop is the only goroutine that writes to the socket, which keeps
// frames whole and delivers them in enqueue order.
func (c *WSConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *WSConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// ReadMessage blocks for the next inbound frame. Any transport error,
// including a clean peer close, surfaces here and ends the caller's read
// loop.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close is safe to call from any goroutine, any number of times. Closing the
// underlying socket also unblocks a pending ReadMessage.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
