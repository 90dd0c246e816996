package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow counts a hit and starts the window on the first one. It returns
// the new count and the milliseconds left in the window.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// releaseLock deletes the lock only while ARGV[1] still owns it.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Window is the state of one fixed-window counter after a hit.
type Window struct {
	Allowed bool
	Count   int64
	ResetIn time.Duration
}

// FixedWindow records a hit against scope and reports whether it stays
// within limit for the current window.
func (c *Client) FixedWindow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	rdb, err := c.conn()
	if err != nil {
		return Window{}, err
	}
	if window <= 0 {
		return Window{}, fmt.Errorf("redis: window must be positive, got %s", window)
	}
	res, err := fixedWindow.Run(ctx, rdb, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("redis: fixed window %s: %w", scope, err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("redis: fixed window %s: unexpected reply %v", scope, res)
	}
	resetIn := time.Duration(res[1]) * time.Millisecond
	if resetIn < 0 {
		resetIn = window
	}
	return Window{Allowed: res[0] <= limit, Count: res[0], ResetIn: resetIn}, nil
}

// AcquireLock takes the named lock for token. It reports false while another
// token holds it.
func (c *Client) AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, c.LockKey(name), token, ttl)
}

// ReleaseLock is a no-op when token no longer owns the lock.
func (c *Client) ReleaseLock(ctx context.Context, name, token string) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	return releaseLock.Run(ctx, rdb, []string{c.LockKey(name)}, token).Err()
}
