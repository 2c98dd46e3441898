package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"uniqbot/internal/adapter/repo"
	"uniqbot/internal/conversation"
	"uniqbot/internal/dispatch"
	"uniqbot/internal/http/handlers"
	httpapi "uniqbot/internal/http/httpapi"
	"uniqbot/internal/infra"
	"uniqbot/internal/storage"
	"uniqbot/internal/uniquify"
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
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.ApplySchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("api: schema apply failed")
	}

	presets := repo.NewPresetRepository(runner)
	if err := presets.SeedDefault(ctx, uniquify.DefaultPreset()); err != nil {
		logger.Fatal().Err(err).Msg("api: preset seed failed")
	}
	defaultPreset, err := presets.GetDefault(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: default preset missing")
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: redis connection failed")
	}
	defer rdb.Close()

	jobs := repo.NewJobRepository(runner)
	dispatcher := dispatch.NewDispatcher(jobs, dispatch.NewRedisQueue(rdb), logger)

	machine := conversation.NewMachine(dispatcher, defaultPreset.ID, cfg.MaxPhotoSizeBytes(), logger)
	sessions := conversation.NewManager(machine, cfg.SessionTTL, logger)
	sessions.StartJanitor(ctx)

	go dispatch.Listen(ctx, rdb, logger, func(n dispatch.Notification) {
		sessions.ResolveJob(n.JobID, n.Status)
	})

	app := handlers.NewApp(sessions, dispatcher, fileStore, cfg, logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != os.ErrClosed {
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
