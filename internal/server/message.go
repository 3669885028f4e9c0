// Package server defines the wire-level message envelope exchanged between
// the chat server and its clients, tagged by message kind.
package server

import (
	"encoding/json"
	"fmt"
)

// MessageKind identifies the purpose of a Message and determines which of
// its optional fields are meaningful.
type MessageKind string

// The closed set of message kinds understood by the protocol.
const (
	KindRequestUsername MessageKind = "request_username"
	KindNewUsername     MessageKind = "new_username"
	KindRequestPassword MessageKind = "request_password"
	KindNewPassword     MessageKind = "new_password"
	KindLoginError      MessageKind = "login_error"
	KindLoginAccepted   MessageKind = "login_accepted"
	KindTextMessage     MessageKind = "text"
	KindUserAdded       MessageKind = "user_added"
	KindUserRemoved     MessageKind = "user_removed"
	KindDisconnect      MessageKind = "disconnect"
	KindNotifyAdd       MessageKind = "notify_add"
	KindNotifyRemove    MessageKind = "notify_remove"
)

var knownKinds = map[MessageKind]struct{}{
	KindRequestUsername: {},
	KindNewUsername:     {},
	KindRequestPassword: {},
	KindNewPassword:     {},
	KindLoginError:      {},
	KindLoginAccepted:   {},
	KindTextMessage:     {},
	KindUserAdded:       {},
	KindUserRemoved:     {},
	KindDisconnect:      {},
	KindNotifyAdd:       {},
	KindNotifyRemove:    {},
}

// Valid reports whether k belongs to the protocol's closed kind set.
func (k MessageKind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Message is the unit exchanged over a connection. Kind is always set;
// Text and Usernames are populated only for the kinds that carry them.
// A Message is immutable once constructed.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Usernames []string    `json:"usernames,omitempty"`
}

// NewControlMessage builds a Message that carries no payload beyond its kind.
func NewControlMessage(kind MessageKind) Message {
	return Message{Kind: kind}
}

// NewTextMessage builds a Message whose payload is a single text field.
// It is used for chat text as well as the username/password replies and
// the single-username add/remove notices.
func NewTextMessage(kind MessageKind, text string) Message {
	return Message{Kind: kind, Text: text}
}

// NewUserListMessage builds a Message carrying a set of usernames.
func NewUserListMessage(kind MessageKind, usernames []string) Message {
	return Message{Kind: kind, Usernames: usernames}
}

// EncodeMessage serializes m into a single self-delimiting JSON line,
// including the trailing newline.
func EncodeMessage(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeMessage parses a single JSON-encoded envelope and rejects
// payloads whose kind is outside the protocol's closed set.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if !m.Kind.Valid() {
		return Message{}, fmt.Errorf("decode message: unknown kind %q", m.Kind)
	}
	return m, nil
}
