package main

import (
	"context"
	"errors"
	"os"

	"membership/internal/app"
	"membership/internal/config"
	"membership/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, "console")
	log := logger.Component("admin")

	ctx := context.Background()
	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend init failed")
	}
	defer backend.Close()

	svc := backend.Services(cfg, log, app.Options{})
	cli := commandLine{
		students:   svc.Students,
		recomputer: svc.Aggregator,
		migrate: func(ctx context.Context) error {
			if backend.DB == nil {
				return errNoDatabase
			}
			return backend.DB.Migrate(ctx)
		},
		log: log,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			log.Error().Err(err).Msg("command failed")
		}
		backend.Close()
		os.Exit(1)
	}
}
