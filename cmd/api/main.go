package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tenqz/videosos/internal/adapter/repo"
	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/download"
	"github.com/tenqz/videosos/internal/http/handlers"
	httpapi "github.com/tenqz/videosos/internal/http/httpapi"
	"github.com/tenqz/videosos/internal/infra"
	"github.com/tenqz/videosos/internal/invalidate"
	"github.com/tenqz/videosos/internal/orchestrator"
	"github.com/tenqz/videosos/internal/providers/fal"
	"github.com/tenqz/videosos/internal/providers/runware"
	"github.com/tenqz/videosos/internal/thumbnail"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	var invalidator domain.Invalidator = invalidate.NopInvalidator{}
	if cfg.RedisAddr != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		invalidator = invalidate.NewRedisInvalidator(rdb, &logger)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, invalidation signals disabled")
	}

	falClient, err := fal.NewClient(fal.Options{
		APIKey:       cfg.FalAPIKey,
		QueueBaseURL: cfg.FalQueueBaseURL,
		RestBaseURL:  cfg.FalRestBaseURL,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure fal client")
	}
	if !falClient.HasCredentials() {
		logger.Warn().Msg("FAL_API_KEY not set, fal submissions will be rejected")
	}

	runwareSource := runware.NewLazySource(runware.Options{
		APIKey:  cfg.RunwareAPIKey,
		BaseURL: cfg.RunwareBaseURL,
		Logger:  &logger,
	})

	store := repo.NewMediaRepository(infra.NewSQLRunner(dbpool, logger))
	orch := orchestrator.New(orchestrator.Options{
		Store:       store,
		Invalidator: invalidator,
		Fal:         falClient,
		Runware: orchestrator.RunwareSourceFunc(func(ctx context.Context) (orchestrator.RunwareClient, error) {
			return runwareSource.Client(ctx)
		}),
		Fetcher:    download.NewHTTPFetcher(nil),
		Thumbnails: thumbnail.NewFFmpegExtractor(),
		Logger:     &logger,
	})

	app := handlers.NewApp(orch, store, logger)
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Let in-flight reconciliations and downloads settle before closing
	// the database pool.
	done := make(chan struct{})
	go func() {
		orch.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("timed out waiting for background tasks")
	}
	logger.Info().Msg("server stopped")
}
