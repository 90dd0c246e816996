package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/registry"
)

const orderFanOutConsumer = "order-fanout"

// errOrderMissing marks an event whose order is gone. Only the order lookup
// produces it, so not-found errors from the fan-out never drop an event.
var errOrderMissing = errors.New("order not found")

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type ownerNotifier interface {
	NotifyOwners(ctx context.Context, order *models.Order) (FanOutResult, error)
}

type eventResolver interface {
	ResolveMessage(attributes map[string]string, data []byte) (*registry.Resolved, error)
}

type onceRunner interface {
	Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

// ConsumerParams wires the order fan-out consumer.
type ConsumerParams struct {
	Orders       orderLoader
	FanOut       ownerNotifier
	Registry     eventResolver
	Idempotency  onceRunner
	Subscription *pubsub.Subscriber
	Logger       *logger.Logger
}

// Consumer turns order_created events into owner notifications.
type Consumer struct {
	orders       orderLoader
	fanout       ownerNotifier
	registry     eventResolver
	idempotency  onceRunner
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds the order fan-out consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.FanOut == nil {
		return nil, fmt.Errorf("fan-out required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       params.Orders,
		fanout:       params.FanOut,
		registry:     params.Registry,
		idempotency:  params.Idempotency,
		subscription: params.Subscription,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("notification subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attributes map[string]string, data []byte) processResult {
	eventType := attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) {
		c.logg.Info(logCtx, "skipping non-order event")
		return processResult{ack: true}
	}

	resolved, err := c.registry.ResolveMessage(attributes, data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode order event", err)
		return processResult{ack: true}
	}
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	if !ok || payload.OrderID == uuid.Nil {
		c.logg.Warn(logCtx, "order event missing order id")
		return processResult{ack: true}
	}
	eventID := resolved.Envelope.EventID

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())
	skipped, err := c.idempotency.Once(ctx, orderFanOutConsumer, eventID, func(ctx context.Context) error {
		return c.handle(ctx, payload.OrderID)
	})
	switch {
	case errors.Is(err, errOrderMissing):
		c.logg.Warn(logCtx, "order not found, dropping event")
		return processResult{ack: true}
	case errors.Is(err, idempotency.ErrInFlight):
		c.logg.Info(logCtx, "event held by another delivery, retrying later")
		return processResult{nack: true}
	case err != nil:
		c.logg.Error(logCtx, "order fan-out failed", err)
		return processResult{nack: true}
	case skipped:
		c.logg.Info(logCtx, "event already processed")
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, orderID uuid.UUID) error {
	order, err := c.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", errOrderMissing, orderID)
	}
	if err != nil {
		return err
	}
	_, err = c.fanout.NotifyOwners(ctx, order)
	return err
}
