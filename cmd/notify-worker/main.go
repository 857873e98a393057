package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mvaldezh/whisperlink-backend/internal/notifications"
	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	"github.com/mvaldezh/whisperlink-backend/pkg/db"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
	"github.com/mvaldezh/whisperlink-backend/pkg/metrics"
	"github.com/mvaldezh/whisperlink-backend/pkg/migrate"
	"github.com/mvaldezh/whisperlink-backend/pkg/pubsub"
	"github.com/mvaldezh/whisperlink-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notify-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "notify-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notify-worker",
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

	rtMetrics := metrics.NewRealtimeMetrics(prometheus.DefaultRegisterer)

	broker, err := realtime.NewBroker(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime broker", err)
		os.Exit(1)
	}

	publisher, err := notifications.NewPublisher(
		notifications.NewRepository(dbClient.DB()),
		broker,
		logg,
		rtMetrics,
		cfg.Notifications,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}

	consumer, err := notifications.NewConsumer(publisher, pubsubClient.NotificationSubscription(), redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting notify worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notify worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notify worker shutting down gracefully")
}
