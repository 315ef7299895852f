package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/medibot/internal/adapters/http"
	"github.com/PabloGalante/medibot/internal/bootstrap"
	"github.com/PabloGalante/medibot/internal/config"
	"github.com/PabloGalante/medibot/internal/observability"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		observability.Init(os.Stderr, "info")
		observability.Logger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	observability.Init(os.Stdout, cfg.LogLevel)
	log := observability.Logger()

	svc, closeStores, err := bootstrap.NewService(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStores(); err != nil {
			log.Warn("failed to close stores", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("medibot API listening", "port", cfg.Port, "provider", cfg.Provider, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info("shutting down", "signal", sig.String())
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", "error", err)
	}
	log.Info("medibot API stopped")
}
