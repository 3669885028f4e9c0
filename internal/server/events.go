// Package server publishes user add/remove notifications for external
// observers (an operator UI or monitoring surface) on an event channel,
// decoupled from message delivery to chat clients.
package server

// Event signals that a user came online or went offline. Kind is either
// KindNotifyAdd or KindNotifyRemove.
type Event struct {
	Kind     MessageKind
	Username string
}

const eventBufferSize = 64

// notifier fans out events without ever blocking the engine. When the
// buffer is full the event is dropped; observers get best-effort delivery.
type notifier struct {
	events chan Event
}

func newNotifier() *notifier {
	return &notifier{events: make(chan Event, eventBufferSize)}
}

func (n *notifier) publish(kind MessageKind, username string) {
	select {
	case n.events <- Event{Kind: kind, Username: username}:
	default:
	}
}
