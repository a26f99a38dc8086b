package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rgalindo-dev/storely-backend/api/routes"
	"github.com/rgalindo-dev/storely-backend/internal/events"
	"github.com/rgalindo-dev/storely-backend/internal/fulfillments"
	"github.com/rgalindo-dev/storely-backend/internal/notifications"
	"github.com/rgalindo-dev/storely-backend/internal/orders"
	"github.com/rgalindo-dev/storely-backend/internal/payments"
	"github.com/rgalindo-dev/storely-backend/internal/webhooks/gateway"
	"github.com/rgalindo-dev/storely-backend/pkg/config"
	"github.com/rgalindo-dev/storely-backend/pkg/db"
	"github.com/rgalindo-dev/storely-backend/pkg/env"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
	"github.com/rgalindo-dev/storely-backend/pkg/metrics"
	"github.com/rgalindo-dev/storely-backend/pkg/migrate"
	"github.com/rgalindo-dev/storely-backend/pkg/pubsub"
	"github.com/rgalindo-dev/storely-backend/pkg/redis"
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

	// Redis only backs the best-effort notification once-guard, so a
	// missing configuration degrades the service instead of stopping it.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, notification dedup guard disabled")
	}

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "gcp project not configured, confirmation events disabled")
	}

	notifParams := notifications.ServiceParams{Logger: logg}
	if pubsubClient != nil {
		notifParams.Publisher = pubsubClient.NotificationPublisher()
	}
	if redisClient != nil {
		notifParams.Once = redisClient
	}
	notifier, err := notifications.NewService(notifParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	gatewayService, err := gateway.NewService(gateway.ServiceParams{
		Logger:       logg,
		Orders:       orders.NewRepository(dbClient.DB()),
		Payments:     payments.NewRepository(dbClient.DB()),
		Fulfillments: fulfillments.NewRepository(dbClient.DB()),
		Notifier:     notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway webhook service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	routerParams := routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		DBPinger:       dbClient,
		GatewayService: gatewayService,
		EventsRepo:     events.NewRepository(dbClient.DB()),
		WebhookMetrics: webhookMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if redisClient != nil {
		routerParams.RedisPinger = redisClient
	}
	if pubsubClient != nil {
		routerParams.PubSubPinger = pubsubClient
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	id := env.Get("DYNO", "local")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(routerParams),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
