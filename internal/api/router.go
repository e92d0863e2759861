package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/carpark-core/internal/activity"
	"github.com/nerrad567/carpark-core/internal/carpark"
	"github.com/nerrad567/carpark-core/internal/panel"
)

// healthCheckTimeout bounds each dependency probe made by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID, echoRequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(s.allowOrigins)

	r.Get("/metrics", s.handlePrometheus)

	// Lot display page, fed by the websocket route below
	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.cfg.PanelDir)))
	r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleListEvents)
		r.Get("/system", s.handleSystemMetrics)
		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath is websocket.path, mounted under /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports "ok" or "degraded" with the result of each dependency probe.
// A degraded server still answers 200 so the lot keeps serving reads.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string, len(s.checks))

	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	respond(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

// statusResponse is the lot snapshot plus the plates currently inside.
type statusResponse struct {
	carpark.Status
	Plates []string `json:"plates"`
}

// handleStatus returns the current lot occupancy.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, statusResponse{
		Status: s.lot.Snapshot(),
		Plates: s.lot.Plates(),
	})
}

// handleListEvents returns paginated entry/exit history with optional filters.
//
// Query parameters:
//   - location: filter by lot location
//   - plate: filter by plate
//   - action: entered or removed
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		fail(w, http.StatusServiceUnavailable, "activity history not configured")
		return
	}

	q := r.URL.Query()
	filter := activity.Filter{
		Location: q.Get("location"),
		Plate:    q.Get("plate"),
		Action:   q.Get("action"),
	}

	if filter.Action != "" && !slices.Contains(validActions, carpark.Action(filter.Action)) {
		fail(w, http.StatusBadRequest, "action must be entered or removed")
		return
	}

	var ok bool
	if filter.Limit, ok = intParam(q.Get("limit")); !ok {
		fail(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, ok = intParam(q.Get("offset")); !ok {
		fail(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	result, err := s.events.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list activity", "error", err)
		fail(w, http.StatusInternalServerError, "failed to list activity")
		return
	}

	respond(w, http.StatusOK, result)
}

var validActions = []carpark.Action{carpark.ActionEntered, carpark.ActionRemoved}

// intParam parses an optional non-negative query parameter. Empty means zero.
func intParam(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// handlePrometheus serves the Prometheus exposition format.
func (s *Server) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		fail(w, http.StatusServiceUnavailable, "metrics not enabled")
		return
	}
	s.metrics.Observe(s.lot.Snapshot())
	s.metrics.Handler().ServeHTTP(w, r)
}
