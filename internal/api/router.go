package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check and metrics (no auth required for monitoring)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Q-SYS core engine status
			r.Get("/status", s.handleCoreStatus)

			// Control endpoints. Reads take a body too, so both are POST.
			r.Route("/controls", func(r chi.Router) {
				r.Post("/get", s.handleGetControls)
				r.Post("/set", s.handleSetControls)
			})

			// Change group endpoints
			r.Route("/groups", func(r chi.Router) {
				r.Get("/", s.handleListGroups)
				r.Post("/", s.handleCreateGroup)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetGroup)
					r.Delete("/", s.handleDestroyGroup)
					r.Post("/controls", s.handleAddControls)
					r.Delete("/controls", s.handleRemoveControls)
					r.Post("/clear", s.handleClearGroup)
					r.Post("/poll", s.handlePollGroup)
					r.Put("/autopoll", s.handleSetAutoPoll)
					r.Delete("/autopoll", s.handleClearAutoPoll)
					r.Get("/events", s.handleQueryEvents)
					r.Get("/cache-policy", s.handleGetCachePolicy)
					r.Put("/cache-policy", s.handleSetCachePolicy)
				})
			})

			// WebSocket event stream (token also accepted via query parameter)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	coreConnected := s.qrc != nil && s.qrc.IsConnected()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"core_connected": coreConnected,
	})
}
