package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Retryable bool         `json:"retryable,omitempty"`
	Fields    []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// requireUser returns the authenticated user or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

// handleError maps domain errors to HTTP responses.
func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	var ue *domain.UserError
	var pe *domain.PersistenceError

	switch {
	case errors.As(err, &ve):
		detail := errorDetail{Code: "VALIDATION", Message: ve.Error()}
		for _, fe := range ve.Errors {
			detail.Fields = append(detail.Fields, fieldError{Field: fe.Field, Message: fe.Message})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: detail})
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrBusy):
		writeError(w, http.StatusConflict, "BUSY", "a meal is already being logged")
	case errors.Is(err, domain.ErrNotCancellable):
		writeError(w, http.StatusConflict, "NOT_CANCELLABLE", "nothing to cancel")
	case errors.Is(err, domain.ErrAlreadyActive):
		writeError(w, http.StatusConflict, "ALREADY_RECORDING", "already recording")
	case errors.Is(err, domain.ErrNotRecording):
		writeError(w, http.StatusConflict, "NOT_RECORDING", "not recording")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "CANCELLED", "cancelled")
	case errors.As(err, &ue):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: errorDetail{
			Code: string(ue.Kind), Message: ue.Message, Retryable: ue.Retryable,
		}})
	case errors.As(err, &pe):
		log.ErrorContext(r.Context(), "persistence failure",
			slog.String("op", pe.Op),
			slog.String("error", err.Error()),
		)
		u := domain.NewUserError(err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errorDetail{
			Code: string(u.Kind), Message: u.Message, Retryable: u.Retryable,
		}})
	default:
		log.ErrorContext(r.Context(), "internal error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
