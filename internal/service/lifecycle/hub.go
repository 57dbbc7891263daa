// Package lifecycle relays app lifecycle events (background/foreground)
// reported by a user's device to the parties interested in them.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// Event is a lifecycle transition of the user's app.
type Event string

const (
	EventBackground Event = "background"
	EventForeground Event = "foreground"
)

// ParseEvent validates an event name.
func ParseEvent(s string) (Event, error) {
	switch e := Event(s); e {
	case EventBackground, EventForeground:
		return e, nil
	}
	return "", domain.NewValidationError("event", "must be background or foreground")
}

// Hub fans lifecycle events out to per-user subscribers.
type Hub struct {
	log *slog.Logger

	mu   sync.Mutex
	seq  uint64
	subs map[uuid.UUID]map[uint64]func(Event)
	last map[uuid.UUID]Event
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:  log.With("service", "lifecycle"),
		subs: make(map[uuid.UUID]map[uint64]func(Event)),
		last: make(map[uuid.UUID]Event),
	}
}

// Subscribe registers fn for the user's events until the returned function
// is called. Unsubscribing twice is harmless.
func (h *Hub) Subscribe(userID uuid.UUID, fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	h.seq++
	id := h.seq
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]func(Event))
	}
	h.subs[userID][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}
}

// Publish delivers ev to the user's current subscribers and returns how many
// were notified. Subscribers are called outside the hub lock.
func (h *Hub) Publish(ctx context.Context, userID uuid.UUID, ev Event) int {
	h.mu.Lock()
	h.last[userID] = ev
	fns := make([]func(Event), 0, len(h.subs[userID]))
	for _, fn := range h.subs[userID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}

	h.log.DebugContext(ctx, "lifecycle event",
		slog.String("user_id", userID.String()),
		slog.String("event", string(ev)),
		slog.Int("subscribers", len(fns)),
	)
	return len(fns)
}

// Last returns the most recent event published for the user.
func (h *Hub) Last(userID uuid.UUID) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev, ok := h.last[userID]
	return ev, ok
}

// Subscribers returns the number of active subscriptions of the user.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
