// Package server tracks per-user activity statistics for the lifetime of a
// user's session.
package server

import (
	"fmt"
	"time"
)

// UserMetaInfo records when a user first connected and how actively they
// have been messaging. It lives exactly as long as the user's registry
// entry and is mutated only through the registry's locked operations.
type UserMetaInfo struct {
	Username            string
	FirstConnectionTime time.Time
	LastMessageTime     time.Time
	SentMessageCount    int
}

// NewUserMetaInfo initializes metadata for a freshly logged-in user.
func NewUserMetaInfo(username string, now time.Time) *UserMetaInfo {
	return &UserMetaInfo{
		Username:            username,
		FirstConnectionTime: now,
		LastMessageTime:     now,
	}
}

// Touch records one more sent message at the given instant.
func (m *UserMetaInfo) Touch(now time.Time) {
	m.LastMessageTime = now
	m.SentMessageCount++
}

// String renders the metadata as the multi-line report shown on the
// operator surface.
func (m UserMetaInfo) String() string {
	return fmt.Sprintf("Username: %s\nFirst connection time: %s\nLast message time: %s\nAll sent message number: %d\n",
		m.Username,
		FormatTimestamp(m.FirstConnectionTime),
		FormatTimestamp(m.LastMessageTime),
		m.SentMessageCount)
}
