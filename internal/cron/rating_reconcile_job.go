package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

type ratingRecomputer interface {
	RecomputeAggregates(ctx context.Context) (int64, error)
}

// NewRatingReconcileJob rebuilds book and user rating aggregates from the review log.
// Re-running it on consistent data changes nothing.
func NewRatingReconcileJob(logg *logger.Logger, reviews ratingRecomputer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if reviews == nil {
		return nil, fmt.Errorf("reviews service required")
	}
	return &ratingReconcileJob{logg: logg, reviews: reviews}, nil
}

type ratingReconcileJob struct {
	logg    *logger.Logger
	reviews ratingRecomputer
}

func (j *ratingReconcileJob) Name() string { return "rating-reconcile" }

func (j *ratingReconcileJob) Run(ctx context.Context) error {
	fixed, err := j.reviews.RecomputeAggregates(ctx)
	if err != nil {
		return fmt.Errorf("rating reconcile: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_fixed", fixed), "rating reconcile complete")
	return nil
}
