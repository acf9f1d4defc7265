// Package api serves the worker's operational endpoints and read-only
// membership lookups over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// CorrelationHeader carries the caller's correlation ID.
const CorrelationHeader = "X-Correlation-ID"

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8081",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Deps are the handlers the server exposes. Nil entries disable their routes.
type Deps struct {
	Health  *observability.HealthRegistry
	Metrics http.Handler
	// OutboxStats reports the relay's counters on /healthz.
	OutboxStats func() outbox.Stats

	GetUserScope         *queries.GetUserScopeHandler
	ListUserMemberships  *queries.ListUserMembershipsHandler
	ListHouseholdMembers *queries.ListHouseholdMembersHandler
	CheckInvariant       *queries.CheckInvariantHandler
}

// Server is the HTTP server of the worker.
type Server struct {
	router *chi.Mux
	server *http.Server
	logger *slog.Logger
	deps   Deps
}

// NewServer creates a server and registers its routes.
func NewServer(cfg ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		deps:   deps,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.correlation)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleLiveness)
	if s.deps.Health != nil {
		r.Get("/readyz", s.handleReadiness)
	}
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.deps.GetUserScope != nil {
			r.Get("/users/{userID}/scope", s.handleUserScope)
		}
		if s.deps.ListUserMemberships != nil {
			r.Get("/users/{userID}/memberships", s.handleUserMemberships)
		}
		if s.deps.CheckInvariant != nil {
			r.Get("/users/{userID}/invariant", s.handleInvariant)
		}
		if s.deps.ListHouseholdMembers != nil {
			r.Get("/households/{householdID}/members", s.handleHouseholdMembers)
		}
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

// correlation puts the request ID and the caller's correlation ID on the
// request context. The correlation ID defaults to the request ID.
func (s *Server) correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		w.Header().Set(CorrelationHeader, id)
		ctx := observability.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(observability.WithCorrelationID(ctx, id)))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps err onto a status code. Unknown entities are 404, other
// caller errors 400, everything else 500 with the detail kept in the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrHouseholdNotFound),
		errors.Is(err, domain.ErrMembershipNotFound):
		writeJSON(w, http.StatusNotFound, APIError{Code: "not_found", Message: err.Error()})
	case domain.IsCallerError(err):
		writeJSON(w, http.StatusBadRequest, APIError{Code: "bad_request", Message: err.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, APIError{Code: "internal", Message: http.StatusText(http.StatusInternalServerError)})
	}
}
