package migrate

import (
	"context"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/db"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations automatically outside production.
// Production deploys run migrations as an explicit release step instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || client == nil {
		return nil
	}
	if cfg.App.IsProd() {
		return nil
	}
	if cfg.DB.Driver != "postgres" {
		// goose migrations target postgres; sqlite schemas come from AutoMigrate in tests.
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	if err := Up(ctx, sqlDB, DefaultDir); err != nil {
		return err
	}
	if logg != nil {
		logg.Info(ctx, "dev migrations applied")
	}
	return nil
}
