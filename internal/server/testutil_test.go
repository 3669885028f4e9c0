package server_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Andrvat/MultiUserChat/internal/server"
)

// testClient speaks the newline-delimited JSON protocol over a raw TCP
// connection, the way a native chat client would.
type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialTestClient(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{
		t:       t,
		conn:    conn,
		scanner: bufio.NewScanner(conn),
	}
}

func (c *testClient) send(m server.Message) {
	c.t.Helper()

	data, err := json.Marshal(m)
	if err != nil {
		c.t.Fatalf("Failed to marshal message: %v", err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		c.t.Fatalf("Failed to write message: %v", err)
	}
}

func (c *testClient) recv() server.Message {
	c.t.Helper()

	if err := c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	if !c.scanner.Scan() {
		c.t.Fatalf("Failed to read message: %v", c.scanner.Err())
	}

	var m server.Message
	if err := json.Unmarshal(c.scanner.Bytes(), &m); err != nil {
		c.t.Fatalf("Failed to unmarshal message %q: %v", c.scanner.Text(), err)
	}
	return m
}

func (c *testClient) expectKind(kind server.MessageKind) server.Message {
	c.t.Helper()

	m := c.recv()
	if m.Kind != kind {
		c.t.Fatalf("Expected message kind %q, got %q", kind, m.Kind)
	}
	return m
}

// attemptLogin runs one handshake round and returns the server's verdict:
// the login_accepted snapshot on success, or false after a login_error.
func (c *testClient) attemptLogin(username, password string) ([]string, bool) {
	c.t.Helper()

	c.expectKind(server.KindRequestUsername)
	c.send(server.NewTextMessage(server.KindNewUsername, username))
	c.expectKind(server.KindRequestPassword)
	c.send(server.NewTextMessage(server.KindNewPassword, password))

	reply := c.recv()
	switch reply.Kind {
	case server.KindLoginAccepted:
		return reply.Usernames, true
	case server.KindLoginError:
		return nil, false
	default:
		c.t.Fatalf("Unexpected reply to login attempt: %q", reply.Kind)
		return nil, false
	}
}

func (c *testClient) mustLogin(username, password string) []string {
	c.t.Helper()

	usernames, ok := c.attemptLogin(username, password)
	if !ok {
		c.t.Fatalf("Login for %q was rejected", username)
	}
	return usernames
}

func (c *testClient) close() {
	_ = c.conn.Close()
}

// startTestServer starts a chat server on an ephemeral port and makes sure
// it is stopped when the test finishes.
func startTestServer(t *testing.T, cfg *server.Config) *server.Server {
	t.Helper()

	if cfg == nil {
		cfg = server.NewConfig()
	}

	srv := server.NewServer(cfg, nil)
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })

	return srv
}

func currentPassword(t *testing.T, srv *server.Server) string {
	t.Helper()

	password, err := srv.CurrentPassword()
	if err != nil {
		t.Fatalf("Failed to read current password: %v", err)
	}
	return password
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// captureLogger records log lines so tests can assert operational events.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *captureLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
