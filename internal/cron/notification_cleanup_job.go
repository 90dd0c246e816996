package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

const (
	defaultNotificationRetention = 90 * 24 * time.Hour
	defaultCleanupBatch          = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// readNotificationPurger deletes up to limit read notifications created
// before cutoff. Unread notifications are never removed.
type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository readNotificationPurger
	Retention  time.Duration
	// BatchSize bounds each delete so one run never holds a long lock.
	BatchSize int
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      readNotificationPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("notification cleanup: logger required")
	case params.DB == nil:
		return nil, errors.New("notification cleanup: db runner required")
	case params.Repository == nil:
		return nil, errors.New("notification cleanup: repository required")
	}
	job := &notificationCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultNotificationRetention
	}
	if job.batch <= 0 {
		job.batch = defaultCleanupBatch
	}
	return job, nil
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run purges in batches until a short batch signals nothing is left. Batches
// already committed stay deleted when a later one fails.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.DeleteReadBefore(ctx, tx, cutoff, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("notification cleanup: %w", err)
		}
		total += n
		batches++
		if n < int64(j.batch) {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
		"batches":      batches,
	}), "notification cleanup complete")
	return nil
}
