package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

// RequestIDHeader is the header used to propagate request IDs.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds client-supplied request IDs.
const maxRequestIDLen = 128

// RequestID reuses the client's X-Request-Id or generates a new one, and
// echoes it on the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
		})
	}
}
