package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/config"
	"github.com/KinuGra/tosho-2509-back/internal/observability"
	"github.com/KinuGra/tosho-2509-back/internal/persistence"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
	"github.com/KinuGra/tosho-2509-back/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	summary, err := seed.Run(ctx, repository.NewProgressRepository(pg.PoolHandle()), seed.Default, logger)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed complete", zap.Int("topics_created", summary.Topics), zap.Int("steps_created", summary.Steps))
}
