// Package main provides the medicine finder API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/spherical-ai/medicine-finder/internal/app"
	"github.com/spherical-ai/medicine-finder/internal/config"
	"github.com/spherical-ai/medicine-finder/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("catalog", cfg.Catalog.SourcePath).
		Str("snapshot", cfg.Catalog.Snapshot.Driver).
		Msg("Starting medicine finder API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize ranking session")
		os.Exit(1)
	}
	defer services.Close()

	// Build the catalog and embeddings up front so /ready flips once done.
	// A failure here is retried by the first rank request.
	go func() {
		start := time.Now()
		if err := services.Session.Warm(ctx, nil); err != nil {
			logger.Warn().Err(err).Msg("Session warm-up failed")
			return
		}
		logger.Info().Dur("took", time.Since(start)).Msg("Session ready")
	}()

	router := NewRouter(logger, RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: []string{"*"},
	}, services.Session)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
