package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/registry"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

type stubOrders struct {
	orders map[uuid.UUID]*models.Order
}

func (s stubOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) NotifyOwners(_ context.Context, _ *models.Order) (FanOutResult, error) {
	s.calls++
	return FanOutResult{}, s.err
}

func newTestConsumer(t *testing.T, orders stubOrders, notifier *stubNotifier) *Consumer {
	t.Helper()
	mr := miniredis.RunT(t)
	manager, err := idempotency.NewManager(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), time.Hour, time.Minute)
	require.NoError(t, err)
	reg, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.NoError(t, err)

	consumer, err := NewConsumer(ConsumerParams{
		Orders:      orders,
		FanOut:      notifier,
		Registry:    reg,
		Idempotency: manager,
		Logger:      testLogger(),
	})
	require.NoError(t, err)
	return consumer
}

func orderEvent(t *testing.T, orderID uuid.UUID) (map[string]string, []byte) {
	t.Helper()
	data, err := json.Marshal(payloads.OrderCreatedEvent{OrderID: orderID, ItemCount: 1, Status: "delivered"})
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return map[string]string{"event_type": "order_created"}, body
}

func TestConsumerProcessesOrderOnce(t *testing.T) {
	order := &models.Order{ID: uuid.New()}
	notifier := &stubNotifier{}
	consumer := newTestConsumer(t, stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, notifier)
	attrs, body := orderEvent(t, order.ID)

	res := consumer.process(context.Background(), "m1", attrs, body)
	require.True(t, res.ack)
	res = consumer.process(context.Background(), "m2", attrs, body)
	require.True(t, res.ack)
	require.Equal(t, 1, notifier.calls)
}

func TestConsumerNacksOnFanOutFailure(t *testing.T) {
	order := &models.Order{ID: uuid.New()}
	notifier := &stubNotifier{err: errors.New("owner lookup failed")}
	consumer := newTestConsumer(t, stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, notifier)
	attrs, body := orderEvent(t, order.ID)

	res := consumer.process(context.Background(), "m1", attrs, body)
	require.True(t, res.nack)

	notifier.err = nil
	res = consumer.process(context.Background(), "m1", attrs, body)
	require.True(t, res.ack)
	require.Equal(t, 2, notifier.calls)
}

func TestConsumerNacksMixedFanOutFailure(t *testing.T) {
	order := &models.Order{ID: uuid.New()}
	mixed := multierr.Append(
		fmt.Errorf("book %s: load book: %w", uuid.New(), gorm.ErrRecordNotFound),
		errors.New("connection reset by peer"),
	)
	notifier := &stubNotifier{err: mixed}
	consumer := newTestConsumer(t, stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, notifier)
	attrs, body := orderEvent(t, order.ID)

	res := consumer.process(context.Background(), "m1", attrs, body)
	require.True(t, res.nack)
	require.False(t, res.ack)
	require.Equal(t, 1, notifier.calls)
}

func TestConsumerAcksUnprocessableMessages(t *testing.T) {
	notifier := &stubNotifier{}
	consumer := newTestConsumer(t, stubOrders{}, notifier)

	res := consumer.process(context.Background(), "m1", map[string]string{"event_type": "something_else"}, nil)
	require.True(t, res.ack)

	res = consumer.process(context.Background(), "m2", map[string]string{"event_type": "order_created"}, []byte("{not json"))
	require.True(t, res.ack)

	attrs, body := orderEvent(t, uuid.New())
	res = consumer.process(context.Background(), "m3", attrs, body)
	require.True(t, res.ack)
	require.Zero(t, notifier.calls)
}

type inFlightRunner struct{}

func (inFlightRunner) Once(context.Context, string, uuid.UUID, func(context.Context) error) (bool, error) {
	return false, idempotency.ErrInFlight
}

func TestConsumerNacksWhileAnotherDeliveryHoldsTheLease(t *testing.T) {
	order := &models.Order{ID: uuid.New()}
	notifier := &stubNotifier{}
	consumer := newTestConsumer(t, stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, notifier)
	consumer.idempotency = inFlightRunner{}

	attrs, body := orderEvent(t, order.ID)
	res := consumer.process(context.Background(), "m1", attrs, body)
	require.True(t, res.nack)
	require.False(t, res.ack)
	require.Zero(t, notifier.calls)
}
