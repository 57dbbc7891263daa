package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/journal"
	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

type journalService interface {
	Today(loc *time.Location) string
	GetDay(ctx context.Context, userID uuid.UUID, date string, loc *time.Location) (*domain.DailyLog, error)
	Refresh(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	AddEntry(ctx context.Context, input journal.AddEntryInput) (*domain.FoodEntry, error)
	UpdateEntry(ctx context.Context, input journal.UpdateEntryInput) (*domain.FoodEntry, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error)
}

// DayHandler serves daily logs and manual entry edits.
type DayHandler struct {
	svc journalService
	log *slog.Logger
}

// NewDayHandler creates a DayHandler.
func NewDayHandler(svc journalService, logger *slog.Logger) *DayHandler {
	return &DayHandler{svc: svc, log: logger.With("handler", "days")}
}

// date resolves the {date} path value; "today" is the device's local date.
func (h *DayHandler) date(r *http.Request) string {
	d := r.PathValue("date")
	if d == "today" {
		return h.svc.Today(ctxutil.LocationFromCtx(r.Context()))
	}
	return d
}

// GetDay handles GET /api/days/{date}.
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, err := h.svc.GetDay(r.Context(), userID, h.date(r), ctxutil.LocationFromCtx(r.Context()))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// Refresh handles POST /api/days/{date}/refresh.
func (h *DayHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, err := h.svc.Refresh(r.Context(), userID, h.date(r))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

type addEntryRequest struct {
	Meal     domain.Meal `json:"meal"`
	Name     string      `json:"name"`
	Quantity string      `json:"quantity"`
	Calories int         `json:"calories"`
	Protein  int         `json:"protein"`
	Carbs    int         `json:"carbs"`
	Fat      int         `json:"fat"`
}

// AddEntry handles POST /api/days/{date}/entries.
func (h *DayHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req addEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	entry, err := h.svc.AddEntry(r.Context(), journal.AddEntryInput{
		UserID: userID,
		Date:   h.date(r),
		Meal:   req.Meal,
		Item: domain.FoodItem{
			Name:     req.Name,
			Quantity: req.Quantity,
			Calories: req.Calories,
			Protein:  req.Protein,
			Carbs:    req.Carbs,
			Fat:      req.Fat,
		},
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type updateEntryRequest struct {
	Meal     *domain.Meal `json:"meal"`
	Name     *string      `json:"name"`
	Quantity *string      `json:"quantity"`
	Calories *int         `json:"calories"`
	Protein  *int         `json:"protein"`
	Carbs    *int         `json:"carbs"`
	Fat      *int         `json:"fat"`
}

// UpdateEntry handles PATCH /api/entries/{id}.
func (h *DayHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handleError(h.log, w, r, domain.NewValidationError("id", "must be a UUID"))
		return
	}
	var req updateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	entry, err := h.svc.UpdateEntry(r.Context(), journal.UpdateEntryInput{
		UserID:   userID,
		EntryID:  entryID,
		Meal:     req.Meal,
		Name:     req.Name,
		Quantity: req.Quantity,
		Calories: req.Calories,
		Protein:  req.Protein,
		Carbs:    req.Carbs,
		Fat:      req.Fat,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/entries/{id}.
func (h *DayHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handleError(h.log, w, r, domain.NewValidationError("id", "must be a UUID"))
		return
	}
	date, err := h.svc.DeleteEntry(r.Context(), userID, entryID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date})
}
