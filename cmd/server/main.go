package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spacesedan/commentflow/config"
	"github.com/spacesedan/commentflow/internal/app"
	"github.com/spacesedan/commentflow/internal/logging"
	"github.com/spacesedan/commentflow/internal/metrics"
	"github.com/spacesedan/commentflow/internal/monitoring"
	"github.com/spacesedan/commentflow/internal/server"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	service, checker := app.NewCommentService(cfg, m)

	var classifierHealthy *atomic.Bool
	if checker != nil {
		classifierHealthy = &atomic.Bool{}
		classifierHealthy.Store(true)
		go monitoring.MonitorClassifierHealth(ctx, clockwork.NewRealClock(), cfg.HealthcheckInterval, checker, classifierHealthy)
	}

	srv := server.NewServer(cfg.Port, service, registry, m, classifierHealthy)

	// Handle graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			slog.Error("[Main] Server stopped", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-stopChan:
		slog.Info("[Main] Shutting down server gracefully...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("[Main] Shutdown failed", slog.String("error", err.Error()))
		}
	}
}
