package types

import "time"

// Message types pushed to stream clients and the event bus
const (
	MessageHello       = "hello"
	MessageReset       = "reset"
	MessageItemAdded   = "item_added"
	MessageItemChanged = "item_changed"
	MessagePong        = "pong"
	MessageError       = "error"
)

// EventMessage is the wire form of an instance list change
type EventMessage struct {
	Type       string `json:"type"`
	Index      int    `json:"index"`
	Generation string `json:"generation"`
	Timestamp  int64  `json:"timestamp"`
	Source     string `json:"source,omitempty"`
	Count      *int   `json:"count,omitempty"`
	Message    string `json:"message,omitempty"`
}

// NewEventMessage stamps a change message with the current time
func NewEventMessage(kind string, index int, generation string) EventMessage {
	return EventMessage{
		Type:       kind,
		Index:      index,
		Generation: generation,
		Timestamp:  time.Now().Unix(),
	}
}
