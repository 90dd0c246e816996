// Package session tracks which access tokens are still live. A token is only
// honoured while its jti has a session key, which lets sign-out revoke it
// before the JWT itself expires.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/angelmondragon/bookstall-backend/pkg/redis"
)

var errBlankAccessID = errors.New("session: access id is required")

// store is the subset of pkg/redis.Client a Manager needs.
type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware consults per request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager expects ttl to equal the access token lifetime.
func NewManager(client *redisclient.Client, ttl time.Duration) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session: ttl must be positive")
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// key trims accessID and rejects blanks.
func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", errBlankAccessID
	}
	return m.store.AccessSessionKey(accessID), nil
}

// Start stores the owning user id under the access id.
func (m *Manager) Start(ctx context.Context, accessID string, userID uuid.UUID) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, userID.String(), m.ttl)
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// HasSession treats a blank access id as no session rather than an error.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, nil
	}
	_, err = m.store.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redisclient.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// NewAccessID mints the jti that doubles as the session key suffix.
func NewAccessID() string {
	return uuid.NewString()
}
