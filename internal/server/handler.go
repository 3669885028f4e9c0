// Package server drives the per-connection protocol: the login handshake
// against the registry and session password, the message relay loop, and
// connection teardown. One handler runs per accepted connection.
package server

// connHandler owns one client connection from accept to close.
type connHandler struct {
	server   *Server
	conn     Conn
	password *SessionPassword
	limiter  *rateLimiter
	username string
}

func newConnHandler(s *Server, conn Conn, password *SessionPassword) *connHandler {
	return &connHandler{
		server:   s,
		conn:     conn,
		password: password,
		limiter:  newRateLimiter(s.cfg.RateLimit.Burst, s.cfg.RateLimit.RefillInterval),
	}
}

// run executes the full connection lifecycle. A transport error during the
// handshake aborts without registering the user; afterwards teardown always
// removes the user from the registry.
func (h *connHandler) run() {
	h.server.logger.Logf("A new user connected from %s", h.conn.RemoteAddr())

	username, err := h.login()
	if err != nil {
		h.server.logger.Logf("An error occurred when connecting a new user from %s: %v", h.conn.RemoteAddr(), err)
		_ = h.conn.Close()
		return
	}

	h.username = username
	h.relay()
}

// login runs the handshake until it succeeds. A rejected attempt re-prompts
// for the username; only a transport failure returns an error.
func (h *connHandler) login() (string, error) {
	for {
		if err := h.conn.Send(NewControlMessage(KindRequestUsername)); err != nil {
			return "", err
		}
		usernameReply, err := h.conn.Receive()
		if err != nil {
			return "", err
		}

		if err := h.conn.Send(NewControlMessage(KindRequestPassword)); err != nil {
			return "", err
		}
		passwordReply, err := h.conn.Receive()
		if err != nil {
			return "", err
		}

		username := usernameReply.Text
		if usernameReply.Kind == KindNewUsername &&
			passwordReply.Kind == KindNewPassword &&
			h.acceptLogin(username, passwordReply.Text) {
			return username, h.completeLogin(username)
		}

		// The client cannot tell a name collision from a wrong password;
		// both answer with the same generic error.
		if err := h.conn.Send(NewControlMessage(KindLoginError)); err != nil {
			return "", err
		}
	}
}

// acceptLogin atomically claims the username and then checks the session
// password, rolling the claim back on a mismatch so that both failure modes
// are indistinguishable to the client.
func (h *connHandler) acceptLogin(username, password string) bool {
	if username == "" {
		return false
	}
	if !h.server.registry.TryAdd(username, h.conn) {
		return false
	}
	if password != h.password.Current() {
		h.server.registry.Remove(username)
		return false
	}
	return true
}

// completeLogin sends the new user the online snapshot, which is taken
// after their own insertion and therefore includes their own name, and
// announces the arrival to everyone else.
func (h *connHandler) completeLogin(username string) error {
	snapshot := h.server.registry.SnapshotUsernames()
	if err := h.conn.Send(NewUserListMessage(KindLoginAccepted, snapshot)); err != nil {
		h.server.registry.Remove(username)
		return err
	}

	h.server.notifier.publish(KindNotifyAdd, username)
	h.server.broadcastExcept(username, NewTextMessage(KindUserAdded, username))
	h.server.logger.Logf("User %s logged in from %s", username, h.conn.RemoteAddr())
	return nil
}

// relay forwards the user's messages until they disconnect or the
// transport fails.
func (h *connHandler) relay() {
	for {
		msg, err := h.conn.Receive()
		if err != nil {
			h.teardownAfterError(err)
			return
		}

		switch msg.Kind {
		case KindTextMessage:
			h.handleText(msg.Text)
		case KindDisconnect:
			h.disconnect()
			return
		default:
			h.server.logger.Logf("Ignoring unexpected %q message from user %s", msg.Kind, h.username)
		}
	}
}

func (h *connHandler) handleText(text string) {
	if !h.limiter.allow() {
		h.server.logger.Logf("Rate limit exceeded for user %s; discarding message", h.username)
		return
	}

	line := FormatChatLine(h.username, text)
	h.server.Broadcast(NewTextMessage(KindTextMessage, line))
	h.server.registry.TouchMessage(h.username)
}

// disconnect handles an orderly departure: the courtesy notice reaches the
// leaving user too, then their entry is removed and the transport closed.
func (h *connHandler) disconnect() {
	h.server.Broadcast(NewTextMessage(KindUserRemoved, h.username))
	h.server.registry.Remove(h.username)
	h.server.notifier.publish(KindNotifyRemove, h.username)
	_ = h.conn.Close()
	h.server.logger.Logf("The user %s with remote address %s has disconnected", h.username, h.conn.RemoteAddr())
}

// teardownAfterError handles a broken transport: no send is attempted on
// the dead connection, but the remaining users still learn of the
// departure. Removal precedes the broadcast so the dead connection is
// excluded from the fan-out. When the entry is already gone, e.g. the
// server is stopping and cleared the registry, the departure was
// announced elsewhere.
func (h *connHandler) teardownAfterError(err error) {
	h.server.logger.Logf("An error occurred when receiving from user %s with address %s: %v", h.username, h.conn.RemoteAddr(), err)
	if h.server.registry.Remove(h.username) {
		h.server.notifier.publish(KindNotifyRemove, h.username)
		h.server.Broadcast(NewTextMessage(KindUserRemoved, h.username))
	}
	_ = h.conn.Close()
}
