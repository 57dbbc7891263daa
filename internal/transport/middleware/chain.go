package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain combines middleware so that the first one runs outermost:
// Chain(a, b)(h) is a(b(h)). Nil entries are skipped, which lets callers
// pass optional middleware such as a disabled rate limit.
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] == nil {
				continue
			}
			final = mws[i](final)
		}
		return final
	}
}
