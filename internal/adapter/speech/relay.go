// Package speech adapts speech recognition that runs on the user's device.
// The device streams recognition events to the server, and the Relay hands
// them to the capture session of that user.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
)

// ErrNoSession is returned by Push when the user is not being recorded.
var ErrNoSession = fmt.Errorf("no active speech session: %w", domain.ErrConflict)

type stream struct {
	id      uint64
	handler func(capture.Event)
	stopped bool
}

// Relay routes pushed events to per-user transducers.
type Relay struct {
	log *slog.Logger

	mu      sync.Mutex
	seq     uint64
	streams map[uuid.UUID]*stream
}

// NewRelay creates a Relay.
func NewRelay(log *slog.Logger) *Relay {
	return &Relay{
		log:     log.With("adapter", "speech"),
		streams: make(map[uuid.UUID]*stream),
	}
}

// Transducer returns the transducer of a user.
func (r *Relay) Transducer(userID uuid.UUID) capture.Transducer {
	return &transducer{relay: r, userID: userID}
}

// Active reports whether the user has an open stream.
func (r *Relay) Active(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.streams[userID]
	return ok
}

// Push delivers an event from the device. A stopped stream still accepts
// the final transcript and the end of the recognition.
func (r *Relay) Push(ctx context.Context, userID uuid.UUID, ev capture.Event) error {
	if err := Validate(ev); err != nil {
		return err
	}

	r.mu.Lock()
	s, ok := r.streams[userID]
	if !ok || (s.stopped && ev.Kind == capture.EventPartial) {
		r.mu.Unlock()
		return ErrNoSession
	}
	handler := s.handler
	if ev.Kind == capture.EventEnded || ev.Kind == capture.EventError {
		delete(r.streams, userID)
	}
	r.mu.Unlock()

	r.log.DebugContext(ctx, "speech event",
		slog.String("user_id", userID.String()),
		slog.Uint64("stream", s.id),
		slog.String("kind", string(ev.Kind)),
	)
	handler(ev)
	return nil
}

// Validate checks an event received from a device.
func Validate(ev capture.Event) error {
	switch ev.Kind {
	case capture.EventStarted, capture.EventEnded, capture.EventPartial, capture.EventFinal:
	case capture.EventError:
		if strings.TrimSpace(ev.Code) == "" {
			return domain.NewValidationError("code", "required for error events")
		}
	default:
		return domain.NewValidationError("kind", "must be started, ended, partial, final or error")
	}
	return nil
}

type transducer struct {
	relay  *Relay
	userID uuid.UUID
}

// Start opens a stream, replacing any previous one of the user.
func (t *transducer) Start(ctx context.Context, handler func(capture.Event)) error {
	r := t.relay
	r.mu.Lock()
	r.seq++
	r.streams[t.userID] = &stream{id: r.seq, handler: handler}
	r.mu.Unlock()

	r.log.DebugContext(ctx, "speech stream opened", slog.String("user_id", t.userID.String()))
	return nil
}

// Stop marks the stream as stopping. The device is expected to follow
// with the final transcript.
func (t *transducer) Stop() error {
	r := t.relay
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[t.userID]
	if !ok {
		return ErrNoSession
	}
	s.stopped = true
	return nil
}

// Cancel closes the stream. Later events are rejected.
func (t *transducer) Cancel() {
	r := t.relay
	r.mu.Lock()
	delete(r.streams, t.userID)
	r.mu.Unlock()
}
