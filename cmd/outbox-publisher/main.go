package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
	"github.com/angelmondragon/bookstall-backend/pkg/migrate"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/publisher"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/registry"
	"github.com/angelmondragon/bookstall-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), "no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "config.load_failed", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox_publisher.exited", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox_publisher.stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer closeQuietly(ctx, logg, "pubsub", pubsubClient.Close)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}
	topics, err := topicPublishers(events, pubsubClient)
	if err != nil {
		return err
	}

	dispatcher, err := publisher.NewDispatcher(publisher.Params{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Ping:          pubsubClient.Ping,
		Repository:    outbox.NewRepository(dbClient.DB()),
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Registry:      events,
		PublisherFactory: func(topic string) publisher.TopicPublisher {
			if p, ok := topics[topic]; ok {
				return p
			}
			return nil
		},
		Metrics: metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	logg.Info(logg.WithField(ctx, "topics", len(topics)), "outbox_publisher.started")
	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// topicPublishers opens one publisher per registered topic so a missing
// topic fails the boot rather than the first event routed to it.
func topicPublishers(events *registry.EventRegistry, client *pubsub.Client) (map[string]publisher.TopicPublisher, error) {
	out := make(map[string]publisher.TopicPublisher)
	for _, topic := range events.Topics() {
		p := client.Publisher(topic)
		if p == nil {
			return nil, fmt.Errorf("no publisher for topic %q", topic)
		}
		out[topic] = publisher.GCPPublisher{Publisher: p}
	}
	return out, nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close_failed", err)
	}
}
