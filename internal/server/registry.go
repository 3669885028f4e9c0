// Package server coordinates the registry of online users: who is connected,
// over which transport, and what they have sent so far. The registry is the
// single source of truth for broadcast fan-out and username uniqueness.
package server

import (
	"sync"
	"time"
)

// UserRecord pairs a validated identity with its live transport.
type UserRecord struct {
	Username string
	Conn     Conn
}

// Registry is a concurrent mapping from username to live connection and
// per-user metadata. A username is present in both maps or in neither;
// every operation is individually atomic under one mutex.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]Conn
	metaInfos   map[string]*UserMetaInfo
}

// NewRegistry creates an empty user registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]Conn),
		metaInfos:   make(map[string]*UserMetaInfo),
	}
}

// TryAdd atomically checks that username is not online and inserts it with
// its connection and fresh metadata. It returns false, inserting nothing,
// when the username is already present. Usernames match case-sensitively.
func (r *Registry) TryAdd(username string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[username]; exists {
		return false
	}

	r.connections[username] = conn
	r.metaInfos[username] = NewUserMetaInfo(username, time.Now())
	return true
}

// Remove deletes username from both maps and reports whether it was
// present. Removing an absent username is a no-op.
func (r *Registry) Remove(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, present := r.connections[username]
	delete(r.connections, username)
	delete(r.metaInfos, username)
	return present
}

// SnapshotUsernames returns a point-in-time copy of the online usernames,
// safe to hand out without further synchronization.
func (r *Registry) SnapshotUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	usernames := make([]string, 0, len(r.connections))
	for username := range r.connections {
		usernames = append(usernames, username)
	}
	return usernames
}

// ForEachConnection applies f to a stable snapshot of the current
// connections. The registry lock is not held while f runs, so f may
// perform blocking sends and may itself call back into the registry.
func (r *Registry) ForEachConnection(f func(username string, conn Conn)) {
	r.mu.RLock()
	snapshot := make(map[string]Conn, len(r.connections))
	for username, conn := range r.connections {
		snapshot[username] = conn
	}
	r.mu.RUnlock()

	for username, conn := range snapshot {
		f(username, conn)
	}
}

// TouchMessage records one more sent message for username. It is a no-op
// when the username is absent, e.g. removed by a concurrent disconnect.
func (r *Registry) TouchMessage(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.metaInfos[username]; ok {
		info.Touch(time.Now())
	}
}

// MetaInfo returns a copy of the metadata for username and whether the
// username is online.
func (r *Registry) MetaInfo(username string) (UserMetaInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.metaInfos[username]
	if !ok {
		return UserMetaInfo{}, false
	}
	return *info, true
}

// Len reports how many users are currently online.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Clear empties both maps and returns the records that were online so the
// caller can close their connections outside the lock.
func (r *Registry) Clear() []UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]UserRecord, 0, len(r.connections))
	for username, conn := range r.connections {
		records = append(records, UserRecord{Username: username, Conn: conn})
	}
	r.connections = make(map[string]Conn)
	r.metaInfos = make(map[string]*UserMetaInfo)
	return records
}
