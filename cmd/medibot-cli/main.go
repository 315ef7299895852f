package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/PabloGalante/medibot/internal/adapters/cli"
	"github.com/PabloGalante/medibot/internal/bootstrap"
	"github.com/PabloGalante/medibot/internal/config"
	"github.com/PabloGalante/medibot/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// after the first signal, a second one gets the default behavior
	context.AfterFunc(ctx, stop)

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	cfg, err := config.Load()

	// logs go to stderr so they stay out of the conversation
	level := "warn"
	if cfg != nil {
		level = cfg.LogLevel
	}
	observability.Init(os.Stderr, level)
	log := observability.Logger()

	if err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	svc, closeStores, err := bootstrap.NewService(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize service", "error", err)
		return 1
	}
	defer func() {
		if err := closeStores(); err != nil {
			log.Warn("failed to close stores", "error", err)
		}
	}()

	if err := cli.NewShell(svc, os.Stdin, os.Stdout).Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("session interrupted")
			return 130
		}
		log.Error("session failed", "error", err)
		return 1
	}
	return 0
}
