// Package idempotency deduplicates Pub/Sub deliveries per consumer.
//
// A delivery first takes a short lease on bs:idempotency:evt:<consumer>:<event_id>.
// When the handler succeeds the lease is replaced by a done marker that lives
// for the retention TTL; when it fails the lease is dropped so the next
// redelivery runs again. A worker that dies mid-handler leaves only the lease,
// which expires on its own.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

const (
	stateLeased = "leased"
	stateDone   = "done"

	DefaultLease = 5 * time.Minute
)

// ErrInFlight means another delivery of the same event holds the lease.
// Consumers should nack and let Pub/Sub redeliver later.
var ErrInFlight = errors.New("event is being processed by another delivery")

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type Manager struct {
	store store
	ttl   time.Duration
	lease time.Duration
}

// NewManager keeps done markers for ttl. A zero lease uses DefaultLease.
func NewManager(s store, ttl, lease time.Duration) (*Manager, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	if lease > ttl {
		lease = ttl
	}
	return &Manager{store: s, ttl: ttl, lease: lease}, nil
}

// Once runs fn at most once per consumer and event. skipped is true when the
// event was already handled. ErrInFlight is returned while another delivery
// holds the lease.
func (m *Manager) Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}

	acquired, err := m.store.SetNX(ctx, key, stateLeased, m.lease)
	if err != nil {
		return false, fmt.Errorf("lease %s: %w", key, err)
	}
	if !acquired {
		state, err := m.store.Get(ctx, key)
		switch {
		case errors.Is(err, redis.ErrNotFound):
			// lease lapsed between the two calls
			return false, ErrInFlight
		case err != nil:
			return false, fmt.Errorf("read %s: %w", key, err)
		case state == stateDone:
			return true, nil
		default:
			return false, ErrInFlight
		}
	}

	if err := fn(ctx); err != nil {
		if delErr := m.store.Del(ctx, key); delErr != nil {
			return false, errors.Join(err, fmt.Errorf("release lease: %w", delErr))
		}
		return false, err
	}
	if err := m.store.Set(ctx, key, stateDone, m.ttl); err != nil {
		return false, fmt.Errorf("mark %s done: %w", key, err)
	}
	return false, nil
}

// Forget drops any marker so the event can be handled again.
func (m *Manager) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
