// Package server adapts WebSocket clients to the same Conn abstraction the
// TCP listener produces, so both transports run an identical protocol.
package server

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn carries one JSON envelope per WebSocket text frame.
type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketConn wraps an upgraded WebSocket connection in a Conn.
// Inbound frames larger than maxMessageSize bytes terminate the connection.
func NewWebSocketConn(conn *websocket.Conn, maxMessageSize int64) Conn {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(m Message) error {
	data, err := EncodeMessage(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send to %s: %w", c.RemoteAddr(), err)
	}
	return nil
}

func (c *wsConn) Receive() (Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return Message{}, fmt.Errorf("receive from %s: %w", c.RemoteAddr(), err)
	}
	return DecodeMessage(data)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
