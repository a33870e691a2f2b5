// Package server implements the HTTP and WebSocket surface of Redink:
// document upload, task inspection, the live progress feed, health probes,
// and the Prometheus metrics endpoint. It also owns the background task
// runner and the spool-directory janitor.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redink-dev/redink/internal/config"
	"github.com/redink-dev/redink/internal/health"
	"github.com/redink-dev/redink/internal/observe"
	"github.com/redink-dev/redink/internal/task"
)

// Server binds the router, the task store, the runner, and the WebSocket hub
// into one HTTP server.
type Server struct {
	store     task.Store
	runner    *Runner
	hub       *Hub
	log       *slog.Logger
	uploadDir string
	maxUpload int64

	httpSrv *http.Server
	tls     *config.TLSConfig
}

// Config collects the Server's dependencies.
type Config struct {
	ListenAddr string
	TLS        *config.TLSConfig

	Store  task.Store
	Runner *Runner
	Hub    *Hub
	Health *health.Handler

	// UploadDir is where uploads are spooled. Empty means the system temp
	// directory.
	UploadDir string

	// MaxUpload bounds the accepted upload size in bytes. 0 means the
	// built-in default.
	MaxUpload int64

	// Metrics may be nil, disabling the HTTP middleware instruments.
	Metrics *observe.Metrics

	// Logger may be nil, in which case slog.Default is used.
	Logger *slog.Logger
}

// New assembles the router and returns a Server ready for Start.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		store:     cfg.Store,
		runner:    cfg.Runner,
		hub:       cfg.Hub,
		log:       log,
		uploadDir: cfg.UploadDir,
		maxUpload: cfg.MaxUpload,
		tls:       cfg.TLS,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(observe.Middleware(cfg.Metrics))
	}

	r.Post("/documents", s.handleUpload)
	r.Get("/tasks", s.handleListTasks)
	r.Get("/tasks/{id}", s.handleGetTask)
	r.Get("/ws", s.hub.ServeHTTP)

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the assembled router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start listens and serves until Shutdown is called. It blocks; run it in a
// goroutine alongside signal handling.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpSrv.Addr, "tls", s.tls != nil)

	var err error
	if s.tls != nil {
		err = s.httpSrv.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
	} else {
		err = s.httpSrv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, disconnects WebSocket clients, and
// drains in-flight correction runs within the ctx deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.hub.Close()
	if err := s.runner.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
