package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

// ErrPendingNotFound is returned when a checkout reference has no pending record.
var ErrPendingNotFound = errors.New("pending checkout not found")

// PendingCheckout is the cart and shipping snapshot held while the buyer pays.
type PendingCheckout struct {
	Reference        string                  `json:"reference"`
	IntentionID      string                  `json:"intention_id"`
	Gateway          string                  `json:"gateway"`
	UserID           uuid.UUID               `json:"user_id"`
	Items            []orders.LineItemInput  `json:"items"`
	Shipping         models.ShippingSnapshot `json:"shipping"`
	ShippingFeeCents int64                   `json:"shipping_fee_cents"`
	TotalCents       int64                   `json:"total_cents"`
	Currency         string                  `json:"currency"`
	CreatedAt        time.Time               `json:"created_at"`
}

type jsonStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
	CheckoutKey(intentionID string) string
}

// PendingStore keeps pending checkouts in Redis under bs:checkout:<reference>.
type PendingStore struct {
	store jsonStore
}

func NewPendingStore(store jsonStore) (*PendingStore, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &PendingStore{store: store}, nil
}

func (s *PendingStore) Save(ctx context.Context, pending PendingCheckout, ttl time.Duration) error {
	return s.store.SetJSON(ctx, s.store.CheckoutKey(pending.Reference), pending, ttl)
}

func (s *PendingStore) Load(ctx context.Context, reference string) (*PendingCheckout, error) {
	var pending PendingCheckout
	if err := s.store.GetJSON(ctx, s.store.CheckoutKey(reference), &pending); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrPendingNotFound
		}
		return nil, err
	}
	return &pending, nil
}

func (s *PendingStore) Delete(ctx context.Context, reference string) error {
	return s.store.Del(ctx, s.store.CheckoutKey(reference))
}
