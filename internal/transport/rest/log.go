package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
	"github.com/heartmarshall/macrolog-backend/internal/service/lifecycle"
	"github.com/heartmarshall/macrolog-backend/internal/service/reconcile"
	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

type logOrchestrator interface {
	SubmitTyped(ctx context.Context, userID uuid.UUID, text string, loc *time.Location) (reconcile.State, error)
	CancelProcessing(userID uuid.UUID) error
	DismissError(userID uuid.UUID)
	State(userID uuid.UUID) reconcile.State
	StartRecording(ctx context.Context, userID uuid.UUID, loc *time.Location) (reconcile.State, error)
	StopRecording(ctx context.Context, userID uuid.UUID) (reconcile.State, error)
	CancelRecording(userID uuid.UUID) reconcile.State
}

type speechRelay interface {
	Push(ctx context.Context, userID uuid.UUID, ev capture.Event) error
}

type lifecyclePublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev lifecycle.Event) int
}

// LogHandler serves the logging session: typed submissions, voice capture,
// processing state and app lifecycle events.
type LogHandler struct {
	orch   logOrchestrator
	relay  speechRelay
	events lifecyclePublisher
	log    *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(orch logOrchestrator, relay speechRelay, events lifecyclePublisher, logger *slog.Logger) *LogHandler {
	return &LogHandler{
		orch:   orch,
		relay:  relay,
		events: events,
		log:    logger.With("handler", "log"),
	}
}

type submitRequest struct {
	Text string `json:"text"`
}

// Submit handles POST /api/log. The attempt runs in the background; the
// response carries the session state right after it started.
func (h *LogHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	state, err := h.orch.SubmitTyped(r.Context(), userID, req.Text, ctxutil.LocationFromCtx(r.Context()))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

// Cancel handles POST /api/log/cancel.
func (h *LogHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.orch.CancelProcessing(userID); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orch.State(userID))
}

// State handles GET /api/state.
func (h *LogHandler) State(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.orch.State(userID))
}

// Dismiss handles POST /api/state/dismiss.
func (h *LogHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.orch.DismissError(userID)
	writeJSON(w, http.StatusOK, h.orch.State(userID))
}

// StartCapture handles POST /api/capture/start.
func (h *LogHandler) StartCapture(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	state, err := h.orch.StartRecording(r.Context(), userID, ctxutil.LocationFromCtx(r.Context()))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// StopCapture handles POST /api/capture/stop. It returns once the final
// transcript arrived or the wait for it timed out.
func (h *LogHandler) StopCapture(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	state, err := h.orch.StopRecording(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// CancelCapture handles POST /api/capture/cancel.
func (h *LogHandler) CancelCapture(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.orch.CancelRecording(userID))
}

// CaptureEvent handles POST /api/capture/events: a recognition event
// streamed by the device.
func (h *LogHandler) CaptureEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var ev capture.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if err := h.relay.Push(r.Context(), userID, ev); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lifecycleRequest struct {
	Event string `json:"event"`
}

type lifecycleResponse struct {
	Event     lifecycle.Event `json:"event"`
	Delivered int             `json:"delivered"`
}

// Lifecycle handles POST /api/lifecycle.
func (h *LogHandler) Lifecycle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req lifecycleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	ev, err := lifecycle.ParseEvent(req.Event)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	n := h.events.Publish(r.Context(), userID, ev)
	writeJSON(w, http.StatusOK, lifecycleResponse{Event: ev, Delivered: n})
}
