// Package server exposes the WebSocket gateway: an HTTP surface that
// upgrades browser connections and feeds them into the same chat protocol
// the TCP listener serves, plus a plain health check endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway bridges WebSocket clients to a chat Server.
type Gateway struct {
	server     *Server
	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     Logger

	maxMessageSize int64
}

// NewGateway wires a gateway to the given chat server using its
// configuration for listen address, origin policy, and message size cap.
func NewGateway(s *Server) *Gateway {
	checker := newOriginChecker(s.cfg.AllowedOrigins, s.logger)

	g := &Gateway{
		server:         s,
		logger:         s.logger,
		maxMessageSize: s.cfg.MaxMessageSize,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checker.check,
	}
	g.httpServer = &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      g.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return g
}

// SetupRoutes configures and returns the gateway's HTTP ServeMux with the
// health check and WebSocket endpoints.
func (g *Gateway) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.HealthHandler)
	mux.HandleFunc("/ws", g.WebSocketHandler)
	return mux
}

// HealthHandler provides a simple health check endpoint that reports the
// service is up.
func (g *Gateway) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}

// WebSocketHandler upgrades the HTTP connection and hands it to the chat
// server, which runs the same login handshake and relay loop as for TCP
// clients.
func (g *Gateway) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Logf("WebSocket upgrade failed: %v", err)
		return
	}

	go g.server.HandleConn(NewWebSocketConn(conn, g.maxMessageSize))
}

// Start begins serving HTTP on the configured address and blocks until the
// server exits.
func (g *Gateway) Start() error {
	g.logger.Logf("WebSocket gateway listening on %s", g.httpServer.Addr)
	return g.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests up to the timeout.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := g.httpServer.Shutdown(ctx); err != nil {
		g.logger.Logf("Gateway shutdown error: %v", err)
		return err
	}
	return nil
}
