package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"thumbsmith/internal/adapter/repo"
	"thumbsmith/internal/bootstrap"
	"thumbsmith/internal/infra"
	"thumbsmith/internal/infra/credentials"
	"thumbsmith/internal/storage"
	"thumbsmith/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	store, err := storage.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	pipeline, closePipeline, err := bootstrap.Pipeline(ctx, cfg, logger, credentials.NewStore(runner))
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure pipeline")
	}
	defer closePipeline()

	w, err := worker.New(worker.Options{
		Jobs:          repo.NewJobRepository(runner),
		Store:         store,
		Pipeline:      pipeline,
		Concurrency:   cfg.WorkerConcurrency,
		JobsPerMinute: cfg.WorkerJobsPerMin,
		RetryBase:     cfg.JobRetryBase,
		Lease:         cfg.JobLease,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid configuration")
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
