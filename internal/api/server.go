// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api is the local HTTP control surface of the recorder.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/export"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/recorder"
)

// Recorder is the recording control the API exposes.
type Recorder interface {
	StartRecording(ctx context.Context) (string, error)
	Cancel() error
	Snapshot() recorder.Snapshot
}

// Preview renders the latest preview frame.
type Preview interface {
	JPEG(quality int) ([]byte, error)
}

// Jobs reads the export job ledger.
type Jobs interface {
	Get(ctx context.Context, id string) (export.Record, error)
	List(ctx context.Context, limit int) ([]export.Record, error)
}

// Config controls the listener and request policy.
type Config struct {
	ListenAddr         string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	PreviewQuality     int
	// ServiceName names request spans (default "splitcap").
	ServiceName string
}

// Deps are the collaborators served over HTTP. Preview and Jobs may be nil.
type Deps struct {
	Recorder Recorder
	Preview  Preview
	Jobs     Jobs
	// Ready reports readiness for /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server owns the router and the listener.
type Server struct {
	cfg    Config
	deps   Deps
	router chi.Router
	srv    *http.Server
	logger zerolog.Logger
}

// New builds the router. Call ListenAndServe to accept connections.
func New(cfg Config, deps Deps) *Server {
	if cfg.PreviewQuality <= 0 {
		cfg.PreviewQuality = 70
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "splitcap"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps, logger: log.WithComponent("api")}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(traced(s.cfg.ServiceName), recoverer, requestID, instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(rateLimit(s.cfg.RateLimitPerMinute, time.Minute))
		}
		r.Post("/recordings", s.handleStartRecording)
		r.Get("/recordings/current", s.handleCurrentRecording)
		r.Delete("/recordings/current", s.handleCancelRecording)
		r.Get("/recordings/current/thumbnail.jpg", s.handleThumbnail)
		r.Get("/preview.jpg", s.handlePreview)
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/{id}", s.handleGetExport)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info().
		Str(log.FieldEvent, "api.listening").
		Str("addr", s.cfg.ListenAddr).
		Msg("control API listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
