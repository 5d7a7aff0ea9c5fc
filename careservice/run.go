// Package careservice assembles and runs the MemoryCare backend HTTP service.
package careservice

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/api"
	"github.com/memorycare/memorycare-backend/internal/auth"
	"github.com/memorycare/memorycare-backend/internal/chat"
	"github.com/memorycare/memorycare-backend/internal/config"
	"github.com/memorycare/memorycare-backend/internal/health"
	"github.com/memorycare/memorycare-backend/internal/llm"
	"github.com/memorycare/memorycare-backend/internal/logger"
	"github.com/memorycare/memorycare-backend/internal/memstore"
	"github.com/memorycare/memorycare-backend/internal/store"
	"github.com/memorycare/memorycare-backend/internal/store/postgres"
	"github.com/memorycare/memorycare-backend/internal/store/sqlite"
)

// Run starts the MemoryCare HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("memorycare-api")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("memory_service_url", cfg.MemoryServiceURL).
		Str("openai_model", cfg.OpenAIModel).
		Msg("MemoryCare service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	// Initialize dependencies (relational store, memory gateway, completion client)
	st, gw, completions, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Build router
	router := buildRouter(st, gw, completions, cfg, log)

	// Start health checkers
	svcHealth := startHealthCheckers(ctx, cfg, log, st, gw)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// HTTP server and serve
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, *memstore.Gateway, *llm.Client, error) {
	st, err := newStore(ctx, cfg)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Relational store unavailable")
		return nil, nil, nil, err
	}

	gw := memstore.New(cfg.MemoryServiceURL, log)
	completions := llm.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Models(), log)
	return st, gw, completions, nil
}

// newStore opens and bootstraps the configured relational backend.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		db        *sql.DB
		err       error
		bootstrap func() error
		build     func(*sql.DB) store.Store
	)
	switch cfg.DBDriver {
	case "sqlite":
		db, err = sqlite.Open(cfg.SQLitePath)
		bootstrap = func() error { return sqlite.Bootstrap(db) }
		build = sqlite.New
	case "postgres":
		db, err = postgres.Open(cfg.PostgresDSN)
		bootstrap = func() error { return postgres.Bootstrap(ctx, db) }
		build = postgres.New
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}
	if err := bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return build(db), nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(st store.Store, gw *memstore.Gateway, completions *llm.Client, cfg *config.Config, log zerolog.Logger) http.Handler {
	chatSvc := chat.NewService(st, gw, completions, cfg.EpisodicTopK, cfg.EpisodicRetry, log)
	return api.NewRouter(api.Deps{
		Store:          st,
		Memory:         gw,
		Chat:           chatSvc,
		Tokens:         auth.NewMemoryTokens(),
		DoctorUsername: cfg.DoctorUsername,
		DoctorPassword: cfg.DoctorPassword,
		Log:            log,
	})
}

// gatewayPinger adapts the memory gateway's health probe to health.HealthPinger.
type gatewayPinger struct {
	gw *memstore.Gateway
}

func (p gatewayPinger) HealthPing(ctx context.Context) error {
	_, err := p.gw.Health(ctx)
	return err
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, gw *memstore.Gateway) *health.ServiceHealthChecker {
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := health.NewPingChecker("store", st, log)
	go storeChecker.Start(ctx, interval)

	memChecker := health.NewPingChecker("memmachine", gatewayPinger{gw: gw}, log)
	go memChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker, memChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Checkers start as unhealthy and need time to run their first probe cycle.
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
