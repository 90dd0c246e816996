// Package publisher drains the outbox table to Pub/Sub with retries, backoff
// and a dead-letter table for rows that can never be delivered.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

// TopicPublisher publishes one message and waits for the server id.
type TopicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

// PublisherFactory returns the publisher for a topic, or nil when unknown.
type PublisherFactory func(topic string) TopicPublisher

type Params struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	Ping             func(context.Context) error
	Repository       outboxRepository
	DLQRepository    dlqRepository
	Registry         registryResolver
	PublisherFactory PublisherFactory
	Metrics          *metrics.OutboxMetrics
}

// Dispatcher moves committed outbox rows onto their topics.
type Dispatcher struct {
	logg             *logger.Logger
	db               dbClient
	ping             func(context.Context) error
	repo             outboxRepository
	dlq              dlqRepository
	registry         registryResolver
	publisherFactory PublisherFactory
	metrics          *metrics.OutboxMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewDispatcher(params Params) (*Dispatcher, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQRepository == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.PublisherFactory == nil {
		return nil, errors.New("publisher factory is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Dispatcher{
		logg:             params.Logger,
		db:               params.DB,
		ping:             params.Ping,
		repo:             params.Repository,
		dlq:              params.DLQRepository,
		registry:         params.Registry,
		publisherFactory: params.PublisherFactory,
		metrics:          params.Metrics,
		batchSize:        batch,
		maxAttempts:      maxAttempts,
		pollInterval:     time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Run polls until ctx is cancelled. Batch errors back off exponentially with jitter.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := d.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "outbox dispatcher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := d.ProcessBatch(ctx)
		if err != nil {
			d.logg.Error(ctx, "outbox dispatcher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if processed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) ensureReadiness(ctx context.Context) error {
	if err := d.db.Ping(ctx); err != nil {
		d.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if d.ping != nil {
		if err := d.ping(ctx); err != nil {
			d.logg.Error(ctx, "pubsub ping failed", err)
			return fmt.Errorf("pubsub ping failed: %w", err)
		}
	}
	return nil
}

// ProcessBatch publishes one batch inside a transaction and returns how many rows it handled.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := d.repo.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events)

		for _, event := range events {
			if err := d.dispatchOne(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (d *Dispatcher) dispatchOne(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := d.registry.Resolve(event)
	if err != nil {
		return d.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil)
	}

	fields := d.eventFields(event, resolved.Envelope, resolved.Route.Topic)
	if err := d.publishResolved(ctx, event, resolved); err != nil {
		if registry.IsPermanent(err) {
			return d.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
		}

		nextAttempt := event.AttemptCount + 1
		fields["attempt_count"] = nextAttempt
		if nextAttempt >= d.maxAttempts {
			terminalErr := fmt.Errorf("max publish attempts reached: %w", err)
			return d.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields)
		}

		logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", err.Error())
		d.logg.Warn(logCtx, "outbox publish failed")
		d.metrics.IncFailed(string(event.EventType))
		if markErr := d.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		return nil
	}

	if markErr := d.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, markErr)
	}
	d.metrics.IncPublished(string(event.EventType))
	d.logg.Info(d.logg.WithFields(ctx, fields), "outbox event published")
	return nil
}

func (d *Dispatcher) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	if fields == nil {
		fields = d.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["error_reason"] = reason
	logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", err.Error())
	d.logg.Warn(logCtx, "outbox event will not be retried")

	entry := event.DeadLetter(reason, err, time.Now())
	if dlqErr := d.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := d.repo.MarkTerminalTx(tx, event.ID, err, d.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	d.metrics.IncDeadLettered(string(event.EventType), string(reason))
	return nil
}

func (d *Dispatcher) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	pub := d.publisherFactory(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	_, err := pub.Publish(publishCtx, msg)
	return err
}

func (d *Dispatcher) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != uuid.Nil {
		fields["event_id"] = envelope.EventID.String()
	}
	if topic != "" {
		fields["topic"] = topic
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

// GCPPublisher adapts a Pub/Sub v2 publisher to TopicPublisher.
type GCPPublisher struct {
	Publisher *gcppubsub.Publisher
}

func (p GCPPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	if p.Publisher == nil {
		return "", errors.New("publisher is nil")
	}
	return p.Publisher.Publish(ctx, msg).Get(ctx)
}
