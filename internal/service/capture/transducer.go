package capture

import "context"

// EventKind enumerates speech transducer events.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
	EventPartial EventKind = "partial"
	EventFinal   EventKind = "final"
	EventError   EventKind = "error"
)

// Event is emitted by a Transducer while it records.
type Event struct {
	Kind    EventKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Transducer turns speech into text. Events for a session are delivered to
// the handler passed to Start; they may arrive on any goroutine.
type Transducer interface {
	Start(ctx context.Context, handler func(Event)) error
	Stop() error
	Cancel()
}
