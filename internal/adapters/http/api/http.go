// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/wandbrain/internal/adapters/repository"
	"github.com/okian/wandbrain/internal/domain/scoring"
	"github.com/okian/wandbrain/internal/domain/tracker"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DebugDependencies
	WandDependencies
	AttemptDependencies
	TemplateDependencies
	RenderDependencies
}

// StatsFunc returns a JSON-encodable service snapshot.
type StatsFunc func() any

// Server wires HTTP routes for the wand API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	debugHandler     *DebugHandler
	wandHandler      *WandHandler
	attemptHandler   *AttemptHandler
	templateHandler  *TemplateHandler
	renderHandler    *RenderHandler
	dashboardHandler *dashboardHandler
	stream           http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithStream mounts a websocket handler at /v1/stream.
func WithStream(h http.Handler) Option {
	return func(s *Server) {
		s.stream = h
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsFunc, opts ...Option) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(stats),
		debugHandler:     NewDebugHandler(deps),
		wandHandler:      NewWandHandler(deps),
		attemptHandler:   NewAttemptHandler(deps),
		templateHandler:  NewTemplateHandler(deps),
		renderHandler:    NewRenderHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/", MetricsMiddleware(s.healthHandler.HandleRoot, "root"))
	r.Get("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/dashboard", s.dashboardHandler.HandleDashboard)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/debug/latest-packet", MetricsMiddleware(s.debugHandler.HandleLatestPacket, "debug_latest_packet"))
		r.Get("/debug/state", MetricsMiddleware(s.debugHandler.HandleState, "debug_state"))

		r.Get("/wands/{wand}/status", MetricsMiddleware(s.wandHandler.HandleStatus, "wand_status"))
		r.Get("/devices/{device}/wands/{wand}/buffer/{attempt}", MetricsMiddleware(s.wandHandler.HandleBuffer, "wand_buffer"))
		r.Get("/devices/{device}/wands/{wand}/latest", MetricsMiddleware(s.attemptHandler.HandleLatest, "wand_latest"))

		r.Get("/attempts/{attempt}", MetricsMiddleware(s.attemptHandler.HandleGet, "attempt"))
		r.Get("/attempts/{attempt}/score", MetricsMiddleware(s.attemptHandler.HandleScore, "attempt_score"))

		r.Get("/templates", MetricsMiddleware(s.templateHandler.HandleList, "templates"))

		r.Get("/render/latest", MetricsMiddleware(s.renderHandler.HandleLatest, "render_latest"))
		r.Get("/render/latest.png", MetricsMiddleware(s.renderHandler.HandleLatestPNG, "render_latest_png"))

		r.Get("/stream", s.handleStream)
	})
}

// Routes returns a router with every API route registered.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		writeError(w, http.StatusNotFound, "not_found", NewKind("api.stream", ErrNoStream))
		return
	}
	s.stream.ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeLookupError maps upstream errors to 404 or 500.
func writeLookupError(w http.ResponseWriter, err error) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}

// isNotFound reports whether err means the requested resource does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, scoring.ErrUnknownTemplate) ||
		errors.Is(err, tracker.ErrNoResults)
}

func uint16Param(r *http.Request, name string) (uint16, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func uint32Param(r *http.Request, name string) (uint32, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
