package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/streakd/internal/adapters/persistence"
	app "github.com/okian/streakd/internal/app"
	"github.com/okian/streakd/internal/config"
	"github.com/okian/streakd/pkg/clock"
	"github.com/okian/streakd/pkg/logger"
	"github.com/okian/streakd/pkg/metrics"
)

// Metrics server and maintenance timing constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	normalizeInterval = time.Minute
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Resolve the calendar location for day boundaries.
	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			os.Stderr.WriteString("failed to load timezone: " + err.Error() + "\n")
			return
		}
	}

	// Select the durable store: Postgres when a DSN is configured,
	// in-memory otherwise.
	var store persistence.Store
	if cfg.StoreDSN != "" {
		pg, err := persistence.NewPGStore(ctx, cfg.StoreDSN)
		if err != nil {
			os.Stderr.WriteString("failed to connect to store: " + err.Error() + "\n")
			return
		}
		defer func() { _ = pg.Close() }()
		store = pg
		log.Info(ctx, "using postgres store")
	} else {
		store = persistence.NewMemoryStore()
		log.Info(ctx, "using in-memory store")
	}

	// Create and start the engine with configuration options
	svc := app.New(
		app.WithLogger(log),
		app.WithClock(clock.NewSystem(loc)),
		app.WithStore(store),
		app.WithWriteQueueSize(cfg.WriteQueueSize),
		app.WithPublishCoolDown(time.Duration(cfg.PublishCoolDownSeconds)*time.Second),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start engine: " + err.Error() + "\n")
		return
	}

	// Periodic normalization catches day boundaries crossed while running.
	go startNormalizer(ctx, svc)

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "engine shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "stopped")
}

// startNormalizer re-checks streak staleness on a ticker so a day boundary
// crossed mid-run breaks streaks without waiting for the next submit.
func startNormalizer(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(normalizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Normalize(ctx, clock.Day{})
		}
	}
}
