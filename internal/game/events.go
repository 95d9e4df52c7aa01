// internal/game/events.go
package game

import (
	"github.com/google/uuid"
)

// Sink is a per-client outbound message channel. Implementations must be
// non-blocking: a Send that cannot complete immediately should fail, after
// which the session drops the sink and never retries.
type Sink interface {
	// Send enqueues one message for delivery. A non-nil error marks the sink
	// as dead.
	Send(msg ServerMessage) error
	// Close shuts the sink down from the server side.
	Close()
	// Closed reports whether the sink can no longer deliver.
	Closed() bool
}

// Event is one item on the session's inbound queue.
type Event interface {
	isEvent()
}

// ClientJoin announces a new client connection for a player. The same player
// id may join any number of times (multiple tabs, reconnects).
type ClientJoin struct {
	PlayerID uuid.UUID
	Sink     Sink
}

// ClientLeave announces that one of a player's connections went away. Dead
// sinks are pruned; the player record persists.
type ClientLeave struct {
	PlayerID uuid.UUID
}

// ClientMessageEvent carries one decoded client command.
type ClientMessageEvent struct {
	PlayerID uuid.UUID
	Msg      ClientMessage
}

func (ClientJoin) isEvent()         {}
func (ClientLeave) isEvent()        {}
func (ClientMessageEvent) isEvent() {}
