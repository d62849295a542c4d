package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orderlift/orderlift-backend/internal/catalog"
	"github.com/orderlift/orderlift-backend/internal/policies"
	"github.com/orderlift/orderlift-backend/internal/pricing"
	"github.com/orderlift/orderlift-backend/internal/scenarios"
	"github.com/orderlift/orderlift-backend/internal/workers/recalc"
	"github.com/orderlift/orderlift-backend/pkg/config"
	"github.com/orderlift/orderlift-backend/pkg/db"
	"github.com/orderlift/orderlift-backend/pkg/logger"
	"github.com/orderlift/orderlift-backend/pkg/metrics"
	"github.com/orderlift/orderlift-backend/pkg/pubsub"
	"github.com/orderlift/orderlift-backend/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), redisClient, cfg.Redis.PriceTTL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	scenarioService, err := scenarios.NewService(scenarios.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create scenario service", err)
		os.Exit(1)
	}

	policyService, err := policies.NewService(policies.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create policy service", err)
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
		logg.Error(ctx, "failed to create pricing service", err)
		os.Exit(1)
	}

	recalcConsumer, err := recalc.NewConsumer(pricingService, pubsubClient.RecalcSubscription(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create recalc consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		RecalcConsumer: recalcConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to assemble worker", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shut down gracefully")
}
