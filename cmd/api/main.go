package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orderlift/orderlift-backend/api/routes"
	"github.com/orderlift/orderlift-backend/internal/catalog"
	"github.com/orderlift/orderlift-backend/internal/logistics"
	"github.com/orderlift/orderlift-backend/internal/policies"
	"github.com/orderlift/orderlift-backend/internal/pricing"
	"github.com/orderlift/orderlift-backend/internal/scenarios"
	"github.com/orderlift/orderlift-backend/pkg/config"
	"github.com/orderlift/orderlift-backend/pkg/db"
	"github.com/orderlift/orderlift-backend/pkg/logger"
	"github.com/orderlift/orderlift-backend/pkg/metrics"
	"github.com/orderlift/orderlift-backend/pkg/migrate"
	"github.com/orderlift/orderlift-backend/pkg/pubsub"
	"github.com/orderlift/orderlift-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), redisClient, cfg.Redis.PriceTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	scenarioService, err := scenarios.NewService(scenarios.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create scenario service", err)
		os.Exit(1)
	}

	policyService, err := policies.NewService(policies.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create policy service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(
		pricing.NewRepository(dbClient.DB()),
		scenarioService,
		policyService,
		catalogService,
		cfg.Pricing,
		logg,
		engineMetrics,
		pubsubClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	logisticsService, err := logistics.NewService(
		logistics.NewRepository(dbClient.DB()),
		catalogService,
		cfg.Logistics,
		logg,
		engineMetrics,
		pubsubClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create logistics service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pricingService,
			scenarioService,
			policyService,
			catalogService,
			logisticsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
