package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, eventID uuid.UUID, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, OccurredAt: time.Now().UTC(), Data: raw})
	require.NoError(t, err)
	return body
}

func orderRow(t *testing.T, orderID uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: orderID, ItemCount: 2}),
	}
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(orderRow(t, orderID))
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Route.Topic)
	require.IsType(t, &payloads.OrderCreatedEvent{}, resolved.Payload)
	payload := resolved.Payload.(*payloads.OrderCreatedEvent)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, 2, payload.ItemCount)
	assert.Equal(t, []string{"orders-topic"}, reg.Topics())
}

func TestResolveMessageRoutesByAttribute(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()
	data := envelope(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: orderID})

	resolved, err := reg.ResolveMessage(map[string]string{"event_type": "order_created"}, data)
	require.NoError(t, err)
	assert.Equal(t, orderID, resolved.Payload.(*payloads.OrderCreatedEvent).OrderID)
	assert.NoError(t, resolved.Envelope.Validate())

	_, err = reg.ResolveMessage(map[string]string{"event_type": "book_sold"}, data)
	assert.True(t, IsPermanent(err), "got %v", err)
	_, err = reg.ResolveMessage(nil, data)
	assert.True(t, IsPermanent(err), "got %v", err)
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := testRegistry(t)

	mutate := func(fn func(*models.OutboxEvent)) models.OutboxEvent {
		row := orderRow(t, uuid.New())
		fn(&row)
		return row
	}
	cases := map[string]models.OutboxEvent{
		"unknown type":       mutate(func(e *models.OutboxEvent) { e.EventType = "book_sold" }),
		"aggregate mismatch": mutate(func(e *models.OutboxEvent) { e.AggregateType = "book" }),
		"nil aggregate":      mutate(func(e *models.OutboxEvent) { e.AggregateID = uuid.Nil }),
		"null payload":       mutate(func(e *models.OutboxEvent) { e.Payload = envelope(t, uuid.New(), nil) }),
		"bad event id":       mutate(func(e *models.OutboxEvent) { e.Payload = envelope(t, uuid.Nil, map[string]string{}) }),
		"malformed event id": mutate(func(e *models.OutboxEvent) {
			e.Payload = json.RawMessage(`{"version":1,"event_id":"evt-1","data":{}}`)
		}),
		"garbage envelope":   mutate(func(e *models.OutboxEvent) { e.Payload = json.RawMessage(`"nope"`) }),
		"wrong payload type": mutate(func(e *models.OutboxEvent) { e.Payload = envelope(t, uuid.New(), []int{1}) }),
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "got %v", err)
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("timeout")))

	cause := errors.New("bad payload")
	wrapped := fmt.Errorf("dispatch: %w", Permanent(cause))
	assert.True(t, IsPermanent(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "dispatch: bad payload", wrapped.Error())
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}
