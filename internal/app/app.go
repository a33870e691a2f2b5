// Package app wires all Redink subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore). When an
// option is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/redink-dev/redink/internal/config"
	"github.com/redink-dev/redink/internal/correct"
	"github.com/redink-dev/redink/internal/health"
	"github.com/redink-dev/redink/internal/observe"
	"github.com/redink-dev/redink/internal/server"
	"github.com/redink-dev/redink/internal/task"
	taskpg "github.com/redink-dev/redink/internal/task/postgres"
	"github.com/redink-dev/redink/pkg/provider/llm"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App owns all subsystem lifetimes.
type App struct {
	cfg      *config.Config
	provider llm.Provider

	store   task.Store
	hub     *server.Hub
	runner  *server.Runner
	srv     *server.Server
	janitor *server.Janitor

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a task store instead of creating one from config.
func WithStore(s task.Store) Option {
	return func(a *App) { a.store = s }
}

// New creates an App by wiring all subsystems together. The provider comes
// from main.go (built via the config registry).
func New(ctx context.Context, cfg *config.Config, provider llm.Provider, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		provider: provider,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Observability ─────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init observability: %w", err)
	}
	a.closers = append(a.closers, otelShutdown)

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("app: create metrics: %w", err)
	}

	// ── 2. Task store ────────────────────────────────────────────────────
	checkers, err := a.initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: init task store: %w", err)
	}

	// ── 3. Correction pipeline ───────────────────────────────────────────
	var clientOpts []correct.ClientOption
	if cfg.Correction.Temperature > 0 {
		clientOpts = append(clientOpts, correct.WithTemperature(cfg.Correction.Temperature))
	}
	if cfg.Correction.MaxTokens > 0 {
		clientOpts = append(clientOpts, correct.WithMaxTokens(cfg.Correction.MaxTokens))
	}
	client := correct.NewClient(provider, clientOpts...)

	// ── 4. Web layer ─────────────────────────────────────────────────────
	uploadDir := cfg.Upload.Dir
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}

	a.hub = server.NewHub(a.store, slog.Default(), metrics)
	a.runner = server.NewRunner(server.RunnerConfig{
		Store:    a.store,
		Hub:      a.hub,
		Client:   client,
		Workers:  cfg.Correction.Workers,
		MaxChars: cfg.Correction.MaxSegmentChars,
		Metrics:  metrics,
	})

	a.srv = server.New(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		TLS:        cfg.Server.TLS,
		Store:      a.store,
		Runner:     a.runner,
		Hub:        a.hub,
		Health:     health.New(checkers...),
		UploadDir:  uploadDir,
		MaxUpload:  cfg.Upload.MaxBytes,
		Metrics:    metrics,
	})

	// ── 5. Janitor ───────────────────────────────────────────────────────
	if cfg.Upload.JanitorInterval > 0 {
		a.janitor = server.NewJanitor(uploadDir, cfg.Upload.JanitorInterval, cfg.Upload.Retention, slog.Default())
	}

	return a, nil
}

// initStore sets up the configured task store and returns its readiness
// checkers.
func (a *App) initStore(ctx context.Context) ([]health.Checker, error) {
	if a.store != nil {
		return nil, nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		a.store = task.NewMemStore()
		return nil, nil
	}

	store, err := taskpg.NewStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error {
		store.Close()
		return nil
	})

	return []health.Checker{{
		Name:  "database",
		Check: store.Ping,
	}}, nil
}

// Run serves HTTP and runs the janitor until ctx is cancelled or the server
// fails.
func (a *App) Run(ctx context.Context) error {
	if a.janitor != nil {
		go a.janitor.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srv.Start()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	}
}

// Shutdown stops the HTTP server, drains in-flight correction runs, and runs
// the remaining closers in order. It respects the context deadline.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.srv.Shutdown(ctx); err != nil {
			slog.Warn("server shutdown error", "err", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
