// Package server defines the narrow logging collaborator the chat engine
// reports operational events through.
package server

import "log"

// Logger receives fire-and-forget operational log lines (server start and
// stop, accepted connections, transport errors). Implementations must not
// block; a failing logger never affects the engine.
type Logger interface {
	Logf(format string, args ...any)
}

// defaultLogger writes through the standard library logger.
type defaultLogger struct{}

func (defaultLogger) Logf(format string, args ...any) {
	log.Printf(format, args...)
}
