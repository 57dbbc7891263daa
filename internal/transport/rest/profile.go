package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/user"
)

type profileService interface {
	GetProfile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, input user.UpdateProfileInput) (*domain.User, error)
}

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	svc profileService
	log *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(svc profileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, log: logger.With("handler", "profile")}
}

type profileResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProfileResponse(u *domain.User) profileResponse {
	return profileResponse{ID: u.ID, Name: u.Name, Timezone: u.Timezone, CreatedAt: u.CreatedAt}
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Timezone *string `json:"timezone"`
}

// Get handles GET /api/me.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetProfile(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(u))
}

// Update handles PATCH /api/me.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), user.UpdateProfileInput{
		Name:     req.Name,
		Timezone: req.Timezone,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(u))
}
