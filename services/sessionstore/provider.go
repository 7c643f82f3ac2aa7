package sessionstore

import (
	"context"

	"github.com/flashtalk/flashtalk/config"
	"github.com/flashtalk/flashtalk/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideStore(db *gorm.DB, logger *logging.Service) Store {
	return NewGormStore(db, logger)
}

func ProvideLivenessCache(cfg *config.Config) *LivenessCache {
	return NewLivenessCache(cfg.Tokens.LivenessCacheTTL)
}

func ProvideCleanupWorker(store Store, cfg *config.Config, logger *logging.Service) *CleanupWorker {
	return NewCleanupWorker(store, cfg.Tokens.CleanupInterval, logger)
}

func runCleanupWorker(lc fx.Lifecycle, worker *CleanupWorker, cfg *config.Config) {
	if cfg.Tokens.CleanupInterval <= 0 {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			worker.Stop()
			return nil
		},
	})
}

var Options = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideLivenessCache),
	fx.Provide(ProvideCleanupWorker),
	fx.Invoke(runCleanupWorker),
)
