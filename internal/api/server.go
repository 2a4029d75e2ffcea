// Package api exposes the widget's render model and operations over HTTP.
// The view layer polls GET /v1/widget/state and posts user actions back;
// every mutation is a thin adapter over a widget method.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"harvestwatch/internal/types"
	"harvestwatch/internal/widget"
)

// WidgetService is the widget surface the HTTP layer consumes.
type WidgetService interface {
	Render() *widget.RenderModel
	Refresh(ctx context.Context) (bool, error)
	TestAlert(ctx context.Context) error
	StartLinking(ctx context.Context) (types.LinkSession, error)
	CancelLinking()
	SetLanguage(ctx context.Context, lang string) error
	DismissBanner()
}

// Server is the HTTP server for one widget instance.
type Server struct {
	router chi.Router
	widget WidgetService
	logger *slog.Logger
}

// NewServer creates a Server and mounts all routes.
func NewServer(svc WidgetService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router: chi.NewRouter(),
		widget: svc,
		logger: logger,
	}
	s.mountRoutes()
	return s
}

// Handler returns the root handler for use by http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// mountRoutes registers the middleware chain and all endpoints. Middleware
// order matters: Recoverer outermost, then request ID so the logger and all
// error envelopes can correlate.
func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.logger))

	s.router.Route("/v1/widget", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/test-alert", s.handleTestAlert)
		r.Post("/link", s.handleStartLinking)
		r.Delete("/link", s.handleCancelLinking)
		r.Put("/language", s.handleSetLanguage)
		r.Delete("/banner", s.handleDismissBanner)
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: s.widget.Render()})
}

type refreshResult struct {
	Accepted bool `json:"accepted"`
}

// handleRefresh triggers an immediate fetch. A refresh that arrives while
// one is in flight is reported as not accepted rather than queued.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	accepted, err := s.widget.Refresh(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	status := http.StatusAccepted
	if !accepted {
		status = http.StatusOK
	}
	JSON(w, r, status, APIResponse{Data: refreshResult{Accepted: accepted}})
}

func (s *Server) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.widget.TestAlert(r.Context()); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"status": "sent"}})
}

func (s *Server) handleStartLinking(w http.ResponseWriter, r *http.Request) {
	session, err := s.widget.StartLinking(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusCreated, APIResponse{Data: session})
}

func (s *Server) handleCancelLinking(w http.ResponseWriter, r *http.Request) {
	s.widget.CancelLinking()
	w.WriteHeader(http.StatusNoContent)
}

type setLanguageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req setLanguageRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if req.Language == "" {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "language is required", nil))
		return
	}
	if err := s.widget.SetLanguage(r.Context(), req.Language); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"language": req.Language}})
}

func (s *Server) handleDismissBanner(w http.ResponseWriter, r *http.Request) {
	s.widget.DismissBanner()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
