// Package api exposes the coordination core over HTTP.
//
// Responses share one envelope: {"success": bool, "data": ..., "message":
// "..."}; failures add an "error" field. Unsupported operations, event
// types, and cache scopes are client mistakes and return 422.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/suitecore/crosscoord/pkg/crosscoord"
)

// Server handles the cross-module HTTP API.
type Server struct {
	coord    *crosscoord.Coordinator
	logger   *slog.Logger
	validate *validator.Validate
}

// NewServer creates a Server around an assembled Coordinator.
func NewServer(coord *crosscoord.Coordinator, logger *slog.Logger) *Server {
	return &Server{
		coord:    coord,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/cross-module", func(r chi.Router) {
		r.Route("/relationships", func(r chi.Router) {
			r.Get("/user/{id}", s.handleRelationships("user"))
			r.Get("/project/{id}", s.handleRelationships("project"))
			r.Get("/lead/{id}", s.handleRelationships("lead"))
		})

		r.Post("/validate", s.handleValidate)
		r.Post("/validate/batch", s.handleValidateBatch)

		r.Post("/events", s.handleDispatchEvent)
		r.Get("/events/pending", s.handlePendingEvents)
		r.Post("/events/process", s.handleProcessEvents)

		r.Get("/stats", s.handleStats)
		r.Post("/cache/clear", s.handleClearCache)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "service healthy")
}
