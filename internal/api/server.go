package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/ern/internal/api/handler"
	mw "github.com/edvin/ern/internal/api/middleware"
	"github.com/edvin/ern/internal/config"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router chi.Router
	logger zerolog.Logger
	engine handler.EmergencyService
	idem   handler.IdempotencyStore
	checks map[string]Pinger
	cfg    *config.Config
}

// NewServer builds the HTTP surface. idem may be nil.
func NewServer(logger zerolog.Logger, engine handler.EmergencyService, db Pinger, idem handler.IdempotencyStore, cfg *config.Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		engine: engine,
		idem:   idem,
		checks: map[string]Pinger{"db": db},
		cfg:    cfg,
	}
	if p, ok := idem.(Pinger); ok {
		s.checks["redis"] = p
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/emergency", func(r chi.Router) {
		r.Use(mw.Auth(s.cfg.JWTSecret, s.cfg.JWTIssuer))

		emergency := handler.NewEmergency(s.engine, s.idem)
		r.Post("/trigger", emergency.Trigger)
		r.Get("/{id}", emergency.Get)
		r.Get("/{id}/log", emergency.Log)
		r.Post("/{id}/response", emergency.RecordResponse)
		r.Post("/{id}/resolve", emergency.Resolve)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
