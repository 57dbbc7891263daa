package rest

import (
	"net/http"

	"github.com/heartmarshall/macrolog-backend/internal/transport/middleware"
)

// Routes groups the handlers and per-route middleware served by the API.
type Routes struct {
	Health  *HealthHandler
	Log     *LogHandler
	Days    *DayHandler
	Targets *TargetsHandler
	Profile *ProfileHandler

	// Auth guards every /api route.
	Auth middleware.Middleware
	// LogLimit throttles the endpoints that start extraction calls; nil disables it.
	LogLimit middleware.Middleware
}

// NewMux registers all routes on a new ServeMux.
func NewMux(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", rt.Health.Live)
	mux.HandleFunc("GET /ready", rt.Health.Ready)
	mux.HandleFunc("GET /health", rt.Health.Health)

	api := func(pattern string, h http.HandlerFunc, extra ...middleware.Middleware) {
		mws := append([]middleware.Middleware{rt.Auth}, extra...)
		mux.Handle(pattern, middleware.Chain(mws...)(h))
	}

	api("POST /api/log", rt.Log.Submit, rt.LogLimit)
	api("POST /api/log/cancel", rt.Log.Cancel)
	api("GET /api/state", rt.Log.State)
	api("POST /api/state/dismiss", rt.Log.Dismiss)
	api("POST /api/capture/start", rt.Log.StartCapture, rt.LogLimit)
	api("POST /api/capture/stop", rt.Log.StopCapture)
	api("POST /api/capture/cancel", rt.Log.CancelCapture)
	api("POST /api/capture/events", rt.Log.CaptureEvent)
	api("POST /api/lifecycle", rt.Log.Lifecycle)

	api("GET /api/days/{date}", rt.Days.GetDay)
	api("POST /api/days/{date}/refresh", rt.Days.Refresh)
	api("POST /api/days/{date}/entries", rt.Days.AddEntry)
	api("PATCH /api/entries/{id}", rt.Days.UpdateEntry)
	api("DELETE /api/entries/{id}", rt.Days.DeleteEntry)

	api("GET /api/targets", rt.Targets.Get)
	api("PUT /api/targets", rt.Targets.Update)
	api("POST /api/targets/solve", rt.Targets.Solve)

	api("GET /api/me", rt.Profile.Get)
	api("PATCH /api/me", rt.Profile.Update)

	return mux
}
