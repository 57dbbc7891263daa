package middleware

import (
	"net/http"
	"time"

	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

// TimezoneHeader carries the IANA timezone of the user's device.
const TimezoneHeader = "X-Timezone"

// Timezone stores the device timezone in the context. A missing or unknown
// zone falls back to def.
func Timezone(def *time.Location) Middleware {
	if def == nil {
		def = time.UTC
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := def
			if name := r.Header.Get(TimezoneHeader); name != "" {
				if l, err := time.LoadLocation(name); err == nil {
					loc = l
				}
			}
			next.ServeHTTP(w, r.WithContext(ctxutil.WithLocation(r.Context(), loc)))
		})
	}
}
