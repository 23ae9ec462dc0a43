package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukahq/storefront-backend/api/routes"
	"github.com/dukahq/storefront-backend/internal/cart"
	"github.com/dukahq/storefront-backend/internal/catalog"
	"github.com/dukahq/storefront-backend/internal/checkout"
	"github.com/dukahq/storefront-backend/internal/payments"
	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/db"
	"github.com/dukahq/storefront-backend/pkg/enums"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/metrics"
	"github.com/dukahq/storefront-backend/pkg/migrate"
	"github.com/dukahq/storefront-backend/pkg/momo"
	"github.com/dukahq/storefront-backend/pkg/pubsub"
	"github.com/dukahq/storefront-backend/pkg/redis"
	"github.com/dukahq/storefront-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogClient, err := catalog.NewClient(cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalogClient, cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Cart, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	providers, err := buildProviders(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire payment providers", err)
		os.Exit(1)
	}
	registry, err := payments.NewRegistry(providers...)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment registry", err)
		os.Exit(1)
	}

	ledger, err := payments.NewLedger(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment ledger", err)
		os.Exit(1)
	}

	gateOpts := checkout.Options{
		Carts:       cartStore,
		Catalog:     catalogService,
		Registry:    registry,
		Ledger:      ledger,
		Logger:      logg,
		DeliveryFee: cfg.Checkout.DeliveryFee,
		Currency:    cfg.Square.Currency,
	}

	promReg := prometheus.NewRegistry()
	gateOpts.Metrics = metrics.NewCheckoutMetrics(promReg)

	if cfg.GCP.ProjectID != "" {
		publisher, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub client", err)
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		gateOpts.Publisher = publisher
	} else {
		logg.Warn(context.Background(), "pubsub not configured, late payment results are logged only")
	}

	gate, err := checkout.NewGate(gateOpts)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout gate", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, catalogService, cartStore, gate, promReg),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildProviders wires every payment rail that has credentials. A rail left
// unconfigured is skipped so local setups can run with a partial set.
func buildProviders(ctx context.Context, cfg *config.Config, logg *logger.Logger) ([]payments.Provider, error) {
	var providers []payments.Provider

	momoRails := []struct {
		name   string
		method enums.PaymentMethod
		cfg    config.MobileMoneyConfig
	}{
		{name: "momo-a", method: enums.PaymentMethodMobileMoneyA, cfg: cfg.MomoA},
		{name: "momo-b", method: enums.PaymentMethodMobileMoneyB, cfg: cfg.MomoB},
	}
	for _, rail := range momoRails {
		if !rail.cfg.Configured() {
			logg.Warn(logg.WithField(ctx, "provider", rail.name), "mobile money rail not configured, skipping")
			continue
		}
		client, err := momo.NewClient(rail.cfg, rail.name, logg)
		if err != nil {
			return nil, err
		}
		provider, err := payments.NewMobileMoneyProvider(client, rail.method)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	if cfg.Square.AccessToken != "" && cfg.Square.LocationID != "" {
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		provider, err := payments.NewCardProvider(client)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	} else {
		logg.Warn(ctx, "square not configured, card payments disabled")
	}

	return providers, nil
}
