package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mvaldezh/whisperlink-backend/api/routes"
	"github.com/mvaldezh/whisperlink-backend/internal/feedback"
	"github.com/mvaldezh/whisperlink-backend/internal/messages"
	"github.com/mvaldezh/whisperlink-backend/internal/notifications"
	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	"github.com/mvaldezh/whisperlink-backend/internal/users"
	"github.com/mvaldezh/whisperlink-backend/pkg/auth/session"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	"github.com/mvaldezh/whisperlink-backend/pkg/db"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
	"github.com/mvaldezh/whisperlink-backend/pkg/metrics"
	"github.com/mvaldezh/whisperlink-backend/pkg/migrate"
	"github.com/mvaldezh/whisperlink-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rtMetrics := metrics.NewRealtimeMetrics(registry)

	broker, err := realtime.NewBroker(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime broker", err)
		os.Exit(1)
	}
	authorizer, err := realtime.NewAuthorizer(cfg.Realtime)
	if err != nil {
		logg.Error(context.Background(), "failed to create channel authorizer", err)
		os.Exit(1)
	}
	hub, err := realtime.NewHub(broker, authorizer, sessionManager, cfg.JWT, cfg.Realtime, logg, rtMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime hub", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	publisher, err := notifications.NewPublisher(notificationsRepo, broker, logg, rtMetrics, cfg.Notifications)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}
	messagesService, err := messages.NewService(usersRepo, messages.NewRepository(dbClient.DB()), publisher, broker, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create messages service", err)
		os.Exit(1)
	}
	feedbackService, err := feedback.NewService(usersRepo, feedback.NewRepository(dbClient.DB()), publisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create feedback service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Notifications: notificationsService,
			Messages:      messagesService,
			Feedback:      feedbackService,
			Authorizer:    authorizer,
			Hub:           hub,
			Metrics:       registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
