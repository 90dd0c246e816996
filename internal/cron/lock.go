package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 10 * time.Minute

// Locker is the distributed lock surface of pkg/redis.Client.
type Locker interface {
	AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// jobLock holds one job exclusively across cron worker replicas.
type jobLock struct {
	locker Locker
	ttl    time.Duration
}

func newJobLock(locker Locker, ttl time.Duration) *jobLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &jobLock{locker: locker, ttl: ttl}
}

// run executes fn while holding the lock for name. It reports false without
// calling fn when another replica holds the lock.
func (l *jobLock) run(ctx context.Context, name string, fn func(context.Context) error) (bool, error) {
	lockName := "cron:" + name
	token := uuid.NewString()
	ok, err := l.locker.AcquireLock(ctx, lockName, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", lockName, err)
	}
	if !ok {
		return false, nil
	}
	runErr := fn(ctx)
	// Release on a fresh context so a canceled run still frees the lock.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.locker.ReleaseLock(releaseCtx, lockName, token); err != nil && runErr == nil {
		return true, fmt.Errorf("release lock %s: %w", lockName, err)
	}
	return true, runErr
}
