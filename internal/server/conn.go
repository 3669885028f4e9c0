// Package server wraps raw transports into the Conn abstraction used by the
// chat engine, framing envelopes as newline-delimited JSON.
package server

import (
	"bufio"
	"fmt"
	"net"
	"sync"
)

// Conn is a reliable, ordered, bidirectional message transport for one
// client. Send is safe for concurrent use; Receive must be called from a
// single goroutine. Close is idempotent and unblocks a pending Receive.
type Conn interface {
	Send(m Message) error
	Receive() (Message, error)
	Close() error
	RemoteAddr() string
}

// tcpConn frames Messages over a stream socket as one JSON object per line.
type tcpConn struct {
	conn    net.Conn
	scanner *bufio.Scanner

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewTCPConn wraps an accepted stream socket in a Conn. Inbound frames
// larger than maxMessageSize bytes terminate the connection with an error.
func NewTCPConn(conn net.Conn, maxMessageSize int64) Conn {
	scanner := bufio.NewScanner(conn)
	if maxMessageSize > 0 {
		scanner.Buffer(make([]byte, 0, 4096), int(maxMessageSize))
	}
	return &tcpConn{
		conn:    conn,
		scanner: scanner,
	}
}

func (c *tcpConn) Send(m Message) error {
	data, err := EncodeMessage(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("send to %s: %w", c.RemoteAddr(), err)
	}
	return nil
}

func (c *tcpConn) Receive() (Message, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Message{}, fmt.Errorf("receive from %s: %w", c.RemoteAddr(), err)
		}
		return Message{}, fmt.Errorf("receive from %s: connection closed", c.RemoteAddr())
	}
	return DecodeMessage(c.scanner.Bytes())
}

func (c *tcpConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *tcpConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
