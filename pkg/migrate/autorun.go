package migrate

import (
	"context"
	"fmt"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

// MaybeRunDev applies the embedded order schema on startup when running in dev
// with ACME_AUTO_MIGRATE enabled. The schema uses postgres enums and jsonb, so
// SQLite dev databases are skipped.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.DB.IsSQLite() {
		return nil
	}

	sqlDB, err := client.SQLDB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": EmbeddedDir})
	if err := ValidateEmbedded(); err != nil {
		return fmt.Errorf("validate embedded migrations: %w", err)
	}
	logg.Info(ctx, "applying order schema migrations")

	if err := Run(ctx, sqlDB, EmbeddedDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "order schema up to date")
	return nil
}
