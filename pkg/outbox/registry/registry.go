// Package registry knows, for every outbox event type, which aggregate it
// belongs to, which topic carries it and how its payload decodes.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/payloads"
)

// Route is the registration of one event type.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// route registers T as the payload of eventType. Resolved payloads are *T.
func route[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) Route {
	return Route{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// Resolved is an outbox row or a delivered message after decoding.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]Route
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("registry: orders topic is required")
	}
	return newRegistry(
		route[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic),
	), nil
}

func newRegistry(routes ...Route) *EventRegistry {
	r := &EventRegistry{routes: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, rt := range routes {
		r.routes[rt.EventType] = rt
	}
	return r
}

// Topics lists every topic some route publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, rt := range r.routes {
		if !seen[rt.Topic] {
			seen[rt.Topic] = true
			topics = append(topics, rt.Topic)
		}
	}
	return topics
}

// Resolve checks an outbox row against its route and decodes it. Every error
// is permanent: retrying the same row cannot succeed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*Resolved, error) {
	rt, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %s", event.EventType))
	case rt.AggregateType != event.AggregateType:
		return nil, Permanent(fmt.Errorf("aggregate mismatch: expected %s got %s", rt.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("missing aggregate_id"))
	}
	return rt.resolve(event.Payload)
}

// ResolveMessage decodes a delivered message routed by its event_type attribute.
func (r *EventRegistry) ResolveMessage(attributes map[string]string, data []byte) (*Resolved, error) {
	eventType, err := enums.ParseOutboxEventType(attributes["event_type"])
	if err != nil {
		return nil, Permanent(err)
	}
	rt, ok := r.routes[eventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("unsupported event type %s", eventType))
	}
	return rt.resolve(data)
}

func (rt Route) resolve(raw []byte) (*Resolved, error) {
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	if err := env.Validate(); err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", rt.EventType, err))
	}
	payload, err := rt.decode(env.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", rt.EventType, err))
	}
	return &Resolved{Route: rt, Envelope: env, Payload: payload}, nil
}
