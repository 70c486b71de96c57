package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"membership/internal/app"
	"membership/internal/config"
	"membership/internal/logger"
	"membership/internal/worker"
)

// Worker consumes recompute requests and rebuilds the sanction list.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" || cfg.StorageBackend == "memory" {
		log.Warn().Msg("memory backends are process-local; the worker only sees its own queue")
	}

	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend init failed")
	}
	defer backend.Close()

	svc := backend.Services(cfg, log, app.Options{})

	messages, err := backend.Queue.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Dur("debounce", cfg.RecomputeGrace).Msg("worker started, waiting for messages")
	worker.New(svc.Aggregator, cfg.RecomputeGrace, log).Run(ctx, messages)
	log.Info().Msg("worker stopped")
}
