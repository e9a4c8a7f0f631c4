package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"thumbsmith/internal/adapter/repo"
	"thumbsmith/internal/bootstrap"
	"thumbsmith/internal/catalog"
	"thumbsmith/internal/http/handlers"
	httpapi "thumbsmith/internal/http/httpapi"
	"thumbsmith/internal/infra"
	"thumbsmith/internal/infra/credentials"
	"thumbsmith/internal/infra/geoip"
	"thumbsmith/internal/storage"
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

	app := &handlers.App{
		Config:      cfg,
		Logger:      logger,
		CatalogData: catalog.Default(),
	}

	// The job queue needs PostgreSQL; without it only synchronous generation is served.
	var keys *credentials.Store
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		keys = credentials.NewStore(runner)

		store, err := storage.Open(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure storage")
		}
		app.Jobs = repo.NewJobRepository(runner)
		app.Store = store
	} else {
		logger.Warn().Msg("DATABASE_URL not set, job endpoints disabled")
	}

	pipeline, closePipeline, err := bootstrap.Pipeline(ctx, cfg, logger, keys)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}
	defer closePipeline()
	app.Pipeline = pipeline

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		app.GeoIP = resolver
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
