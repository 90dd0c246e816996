package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/cron"
	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/internal/reviews"
	"github.com/angelmondragon/bookstall-backend/internal/users"
	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
	"github.com/angelmondragon/bookstall-backend/pkg/migrate"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

func main() {
	once := flag.String("once", "", "run a single job by name and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locker:   redisClient,
		LockTTL:  cfg.Cron.LockTTL,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Tick,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if *once != "" {
		ctx = logg.WithField(ctx, "job", *once)
		if err := service.RunOnce(ctx, *once); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "cron job finished")
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	registry := cron.NewRegistry()

	notificationRepo := notifications.NewRepository(conn)
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationRepo,
		Retention:  cfg.Cron.NotificationRetention,
		BatchSize:  cfg.Cron.NotificationBatch,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(cleanup, cfg.Cron.NotificationCleanup); err != nil {
		return nil, err
	}

	outboxRepo := outbox.NewRepository(conn)
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Repository:   outboxRepo,
		DLQ:          outbox.NewDLQRepository(conn),
		Retention:    cfg.Cron.OutboxRetention,
		DLQRetention: cfg.Cron.DLQRetention,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(retention, cfg.Cron.OutboxCleanup); err != nil {
		return nil, err
	}

	notifier, err := notifications.NewService(notificationRepo)
	if err != nil {
		return nil, err
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, outbox.NewService(outboxRepo, logg), cfg.Checkout.Currency, logg)
	if err != nil {
		return nil, err
	}
	reviewSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviews.NewRepository(conn),
		Tx:        dbClient,
		Purchases: orderSvc,
		Books:     books.NewRepository(conn),
		Users:     users.NewRepository(conn),
		Notifier:  notifier,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("reviews service: %w", err)
	}
	reconcile, err := cron.NewRatingReconcileJob(logg, reviewSvc)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(reconcile, cfg.Cron.RatingReconcile); err != nil {
		return nil, err
	}
	return registry, nil
}
