// Package server manages the shared session password required for login,
// rotating it on a fixed interval while the server runs.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPasswordRotationInterval is how often the session password is
// regenerated while the server is accepting connections.
const DefaultPasswordRotationInterval = 30 * time.Second

// SessionPassword holds the process-wide login secret. Reads and rotations
// are individually atomic; a reader never observes a half-written value.
type SessionPassword struct {
	mu       sync.RWMutex
	value    string
	interval time.Duration
	logger   Logger

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSessionPassword generates an initial secret and prepares a rotator
// with the given interval. A non-positive interval falls back to the
// default. The rotator does not run until StartRotation is called.
func NewSessionPassword(interval time.Duration, logger Logger) *SessionPassword {
	if interval <= 0 {
		interval = DefaultPasswordRotationInterval
	}
	if logger == nil {
		logger = defaultLogger{}
	}
	return &SessionPassword{
		value:    uuid.NewString(),
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Current returns the password a login attempt must present right now.
func (p *SessionPassword) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Rotate installs a freshly generated secret and returns it.
func (p *SessionPassword) Rotate() string {
	next := uuid.NewString()

	p.mu.Lock()
	p.value = next
	p.mu.Unlock()

	p.logger.Logf("Password for current session: %s", next)
	return next
}

// StartRotation launches the background rotation loop. It must be called
// at most once; StopRotation terminates the loop.
func (p *SessionPassword) StartRotation() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.Rotate()
			case <-p.stop:
				return
			}
		}
	}()
}

// StopRotation terminates the rotation loop and waits for it to exit.
// It is idempotent and safe to call even if StartRotation never ran.
func (p *SessionPassword) StopRotation() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})

	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()

	if started {
		<-p.done
	}
}
