// Package server implements the core of the multi-user chat service: the
// TCP listener and WebSocket gateway, the per-connection login handshake
// against a rotating session password, and the broadcast relay between all
// online users.
//
// The implementation is organized into specialized files for configuration,
// the user registry, connection handling, the password rotator, and the
// HTTP gateway to keep the codebase maintainable and testable as the
// project grows.
package server
