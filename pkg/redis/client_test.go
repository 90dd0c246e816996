package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return Wrap(raw), mr
}

func TestFixedWindow(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	hit := func() Window {
		t.Helper()
		win, err := client.FixedWindow(ctx, "login:ip", 2, time.Minute)
		require.NoError(t, err)
		return win
	}

	first := hit()
	assert.True(t, first.Allowed)
	assert.EqualValues(t, 1, first.Count)
	assert.Equal(t, time.Minute, first.ResetIn)
	assert.Equal(t, time.Minute, mr.TTL("bs:rate_limit:login:ip"))

	assert.True(t, hit().Allowed)

	mr.FastForward(20 * time.Second)
	blocked := hit()
	assert.False(t, blocked.Allowed)
	assert.EqualValues(t, 3, blocked.Count)
	assert.Equal(t, 40*time.Second, blocked.ResetIn)

	mr.FastForward(time.Minute)
	again := hit()
	assert.True(t, again.Allowed)
	assert.EqualValues(t, 1, again.Count)

	_, err := client.FixedWindow(ctx, "login:ip", 2, 0)
	assert.Error(t, err)
}

func TestJSONRoundTripAndMissingKey(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	type pending struct {
		UserID string `json:"user_id"`
		Total  int64  `json:"total"`
	}

	key := client.CheckoutKey("intent-1")
	require.NoError(t, client.SetJSON(ctx, key, pending{UserID: "u1", Total: 205}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL(key))

	var got pending
	require.NoError(t, client.GetJSON(ctx, key, &got))
	assert.Equal(t, pending{UserID: "u1", Total: 205}, got)

	require.NoError(t, client.Del(ctx, key))
	err := client.GetJSON(ctx, key, &got)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLockOwnership(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	ok, err := client.AcquireLock(ctx, "cron:rating-reconcile", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, "cron:rating-reconcile", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, "cron:rating-reconcile", "owner-b"))
	held, err := client.Get(ctx, client.LockKey("cron:rating-reconcile"))
	require.NoError(t, err)
	assert.Equal(t, "owner-a", held)

	require.NoError(t, client.ReleaseLock(ctx, "cron:rating-reconcile", "owner-a"))
	_, err = client.Get(ctx, client.LockKey("cron:rating-reconcile"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "bs:session:a1", client.AccessSessionKey(" a1 "))
	assert.Equal(t, "bs:idempotency:id", client.IdempotencyKey("", "id"))
	assert.Equal(t, "bs:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "bs:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "bs:checkout:abc", client.CheckoutKey("abc"))
	assert.Equal(t, "bs:lock:job", client.LockKey("job"))
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	_, err := client.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())

	var nilClient *Client
	assert.ErrorIs(t, nilClient.Del(context.Background(), "k"), errNoConn)
	assert.NoError(t, nilClient.Close())
}

func TestOptionsFillFromConfig(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://:pw@cache:6380/3", PoolSize: 7, DB: 9})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)

	_, err = options(config.RedisConfig{})
	assert.Error(t, err)
}
