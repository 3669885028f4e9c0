// Package server owns the listening socket, spawns one connection handler
// per accepted connection, and exposes the operator control surface:
// Start, Stop, and the current session password.
package server

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
)

// ErrNotRunning is returned by operations that require a started server.
var ErrNotRunning = errors.New("server is not running")

// ErrAlreadyRunning is returned by Start when the server is already accepting.
var ErrAlreadyRunning = errors.New("server is already running")

// BindError reports that the listen address could not be bound. The server
// does not run after a bind failure.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Server accepts chat connections, relays messages between the online
// users, and rotates the shared session password while running.
type Server struct {
	cfg      Config
	logger   Logger
	registry *Registry
	notifier *notifier

	mu       sync.Mutex
	running  bool
	listener net.Listener
	password *SessionPassword

	// conns tracks every open transport, including connections still in
	// the login handshake that have no registry entry yet. Stop closes
	// them all so no handler stays blocked on a receive.
	conns      map[Conn]struct{}
	handlersWg sync.WaitGroup
}

// NewServer creates a stopped server with the given configuration. A nil
// config or logger falls back to defaults.
func NewServer(cfg *Config, logger Logger) *Server {
	var c Config
	if cfg != nil {
		c = *cfg
	} else {
		c = defaultConfig()
	}
	c = sanitizeConfig(c)

	if logger == nil {
		logger = defaultLogger{}
	}

	return &Server{
		cfg:      c,
		logger:   logger,
		registry: NewRegistry(),
		notifier: newNotifier(),
		conns:    make(map[Conn]struct{}),
	}
}

// Start binds the listen address, begins accepting connections, and starts
// session password rotation. An empty addr uses the configured ChatAddr.
// A bind failure is returned as a *BindError and the server stays stopped.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	if addr == "" {
		addr = s.cfg.ChatAddr
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Logf("Couldn't launch the server on %s: %v", addr, err)
		return &BindError{Addr: addr, Err: err}
	}

	s.listener = listener
	s.running = true
	s.password = NewSessionPassword(s.cfg.PasswordRotationInterval, s.logger)
	s.password.StartRotation()

	s.logger.Logf("Server has launched on %s", listener.Addr())
	s.logger.Logf("Password for current session: %s", s.password.Current())

	go s.acceptLoop(listener)
	return nil
}

// Addr returns the bound listen address, useful when starting on port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isRunning() {
				s.logger.Logf("Connection to the server is lost: %v", err)
			}
			return
		}
		go s.HandleConn(NewTCPConn(conn, s.cfg.MaxMessageSize))
	}
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// HandleConn runs the connection lifecycle for an already-wrapped
// transport. It blocks until the connection is torn down, and closes the
// connection immediately when the server is not running. The WebSocket
// gateway feeds its upgraded connections through here.
func (s *Server) HandleConn(conn Conn) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	password := s.password
	s.conns[conn] = struct{}{}
	s.handlersWg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.handlersWg.Done()
	}()

	newConnHandler(s, conn, password).run()
}

// Stop closes every online connection, clears the registry, stops
// accepting, and stops password rotation. Stopping a stopped server is an
// informational no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Logf("Invalid operation. Server is not running yet")
		return nil
	}
	s.running = false
	listener := s.listener
	s.listener = nil
	password := s.password
	open := make([]Conn, 0, len(s.conns))
	for conn := range s.conns {
		open = append(open, conn)
	}
	s.mu.Unlock()

	_ = listener.Close()
	password.StopRotation()

	records := s.registry.Clear()
	for _, record := range records {
		s.notifier.publish(KindNotifyRemove, record.Username)
	}
	for _, conn := range open {
		_ = conn.Close()
	}

	// Each closed connection makes its handler observe a transport error
	// and finish its own teardown.
	s.handlersWg.Wait()

	s.logger.Logf("Server was stopped")
	return nil
}

// CurrentPassword returns the password a client must present to log in
// right now. It fails when the server is not running.
func (s *Server) CurrentPassword() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Logf("Invalid operation. Server is not running yet")
		return "", ErrNotRunning
	}
	return s.password.Current(), nil
}

// Broadcast sends m to every currently-registered connection. A failed
// send is logged and does not abort delivery to the other recipients.
func (s *Server) Broadcast(m Message) {
	s.registry.ForEachConnection(func(username string, conn Conn) {
		if err := conn.Send(m); err != nil {
			s.logger.Logf("Error sending a message to user %s: %v", username, err)
		}
	})
}

// broadcastExcept sends m to every registered connection except skip's.
func (s *Server) broadcastExcept(skip string, m Message) {
	s.registry.ForEachConnection(func(username string, conn Conn) {
		if username == skip {
			return
		}
		if err := conn.Send(m); err != nil {
			s.logger.Logf("Error sending a message to user %s: %v", username, err)
		}
	})
}

// Events exposes the user add/remove notification stream for external
// observers. Delivery is best-effort; a slow observer loses events rather
// than slowing the engine.
func (s *Server) Events() <-chan Event {
	return s.notifier.events
}

// OnlineUsers returns a point-in-time copy of the online usernames.
func (s *Server) OnlineUsers() []string {
	return s.registry.SnapshotUsernames()
}

// UserMetaInfo returns a copy of the activity metadata for username.
func (s *Server) UserMetaInfo(username string) (UserMetaInfo, bool) {
	return s.registry.MetaInfo(username)
}

// MetaInfoReport renders the activity metadata of every online user,
// sorted by username, for the operator surface.
func (s *Server) MetaInfoReport() string {
	usernames := s.registry.SnapshotUsernames()
	sort.Strings(usernames)

	var b strings.Builder
	for _, username := range usernames {
		if info, ok := s.registry.MetaInfo(username); ok {
			b.WriteString(info.String())
		}
	}
	return b.String()
}
