package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/targets"
	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

type targetService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error)
	Update(ctx context.Context, input targets.UpdateInput) (*domain.MacroTargets, error)
	Solve(input targets.SolveInput) (targets.FormState, error)
}

// TargetsHandler serves the user's macro targets and the target form solver.
type TargetsHandler struct {
	svc targetService
	log *slog.Logger
}

// NewTargetsHandler creates a TargetsHandler.
func NewTargetsHandler(svc targetService, logger *slog.Logger) *TargetsHandler {
	return &TargetsHandler{svc: svc, log: logger.With("handler", "targets")}
}

// Get handles GET /api/targets.
func (h *TargetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/targets. The body is the form state: all four
// fields must be filled, one of them possibly derived.
func (h *TargetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var form targets.FormState
	if err := decodeJSON(w, r, &form); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	t, err := h.svc.Update(r.Context(), targets.UpdateInput{
		UserID:   userID,
		Form:     form,
		Location: ctxutil.LocationFromCtx(r.Context()),
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type solveRequest struct {
	Form  targets.FormState        `json:"form"`
	Edits map[targets.Field]string `json:"edits"`
}

// Solve handles POST /api/targets/solve. It is stateless: the client sends
// the form it shows plus the user's edits and renders the result.
func (h *TargetsHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	var req solveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	state, err := h.svc.Solve(targets.SolveInput{Form: req.Form, Edits: req.Edits})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
