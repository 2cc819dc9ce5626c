package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/devicekit/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health and metrics (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Device reads
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermDeviceRead))

			r.Route("/device", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/ready", s.handleGetReady)
				r.Get("/id", s.handleGetDeviceID)
				r.Get("/orientation", s.handleGetOrientation)
				r.Get("/locale", s.handleGetLocale)
				r.Get("/history", s.handleListHistory)
			})

			r.Post("/auth/ws-ticket", s.handleWSTicket)
		})

		// Refresh is authenticated and rate limited
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermDeviceRefresh))
			r.Use(s.rateLimitMiddleware)
			r.Post("/device/refresh", s.handleRefresh)
		})

		// WebSocket (auth via ticket when JWT is enabled, validated in handler)
		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath is the configured WebSocket path under /api/v1.
func (s *Server) wsPath() string {
	p := s.wsCfg.Path
	if p == "" {
		return "/ws"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"ready":   s.device.IsReady(),
		"state":   s.device.State(),
	})
}
