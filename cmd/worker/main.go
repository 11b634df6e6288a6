package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/app"
	"casecraft_echo/internal/config"
	"casecraft_echo/internal/tasks"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	app.SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer container.Close()

	syncTask, err := app.SyncTask(time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build payment sync task")
	}
	created, err := container.TaskRepo.EnsureActive(ctx, syncTask)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed payment sync task")
	}
	if created {
		log.Info().Uint("task_id", syncTask.ID).Str("rule", tasks.DefaultSyncRule).Msg("payment sync task scheduled")
	}

	registry := container.Registry()
	runner := tasks.NewRunner(container.TaskRepo, registry)

	log.Info().Strs("tasks", registry.Names()).Dur("interval", cfg.Worker.Interval).Msg("worker started")
	runner.Run(ctx, cfg.Worker.Interval)
	log.Info().Msg("worker stopped")
}
