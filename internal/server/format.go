// Package server holds the text formatting helpers for chat lines and
// timestamped service log entries.
package server

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// FormatTimestamp renders t in the service's canonical timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// FormatServiceLine prefixes an operational message with the current time.
func FormatServiceLine(message string) string {
	return FormatTimestamp(time.Now()) + " | " + message
}

// FormatChatLine attributes a chat text line to the user who sent it.
func FormatChatLine(username, text string) string {
	return fmt.Sprintf("%s: %s", username, text)
}
