package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

type devStrategy int

const (
	devSkip devStrategy = iota
	devAutoMigrate
	devGoose
)

// devPlan decides how a process boots the schema. Only dev environments with
// BOOKSTALL_AUTO_MIGRATE set touch it; SQLite has no Postgres DDL to run so it
// is built from the models.
func devPlan(cfg *config.Config) devStrategy {
	switch {
	case cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate:
		return devSkip
	case cfg.FeatureFlags.UseSQLite:
		return devAutoMigrate
	default:
		return devGoose
	}
}

func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	strategy := devPlan(cfg)
	if strategy == devSkip {
		return nil
	}
	conn := client.DB().WithContext(ctx)

	if strategy == devAutoMigrate {
		logg.Info(logg.WithField(ctx, "driver", "sqlite"), "migrate.automigrate")
		if err := conn.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	ctx = logg.WithField(ctx, "driver", "postgres")
	logg.Info(ctx, "migrate.goose_up")
	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
