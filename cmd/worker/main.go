package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"uniqbot/internal/adapter/repo"
	"uniqbot/internal/dispatch"
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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.ApplySchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema apply failed")
	}

	presets := repo.NewPresetRepository(runner)
	if err := presets.SeedDefault(ctx, uniquify.DefaultPreset()); err != nil {
		logger.Fatal().Err(err).Msg("worker: preset seed failed")
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	jobs := repo.NewJobRepository(runner)
	engine := uniquify.NewEngine(fileStore, logger)

	workerCfg := dispatch.WorkerConfig{
		Lease:        cfg.JobLease,
		MaxAttempts:  cfg.JobMaxAttempts,
		PollInterval: cfg.JobPollInterval,
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		w := dispatch.NewWorker(
			workerCfg,
			jobs,
			presets,
			engine,
			fileStore,
			uniquify.ArtifactPrefix,
			dispatch.NewRedisQueue(rdb),
			dispatch.NewRedisNotifier(rdb),
			logger.With().Int("worker", i).Logger(),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	wg.Wait()
	logger.Info().Msg("worker: stopped")
}
