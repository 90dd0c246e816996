package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

const reviewConstraint = "ux_reviews_target_reviewer"

// Repository persists reviews and the denormalized rating aggregates.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) Exists(ctx context.Context, target Target, reviewerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("target_kind = ? AND target_id = ? AND reviewer_id = ?", target.Kind, target.ID, reviewerID).
		Count(&count).Error
	return count > 0, err
}

// List returns one page of reviews for target, newest first.
func (r *Repository) List(ctx context.Context, target Target, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Review
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(rv models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rv.CreatedAt, ID: rv.ID}
	})
	return page, next, nil
}

// ApplyRating folds rating into the target's aggregate with a single UPDATE so
// concurrent reviews never lose an increment. It reports whether the target exists.
func (r *Repository) ApplyRating(ctx context.Context, target Target, rating int) (bool, error) {
	table, err := tableFor(target.Kind)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %s
SET rating_mean = (rating_mean * rating_count + ?) / (rating_count + 1),
    rating_count = rating_count + 1
WHERE id = ?`, table),
		float64(rating), target.ID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LoadAggregate reads the stored (mean, count) of target.
func (r *Repository) LoadAggregate(ctx context.Context, target Target) (float64, int, error) {
	table, err := tableFor(target.Kind)
	if err != nil {
		return 0, 0, err
	}
	var row struct {
		RatingMean  float64
		RatingCount int
	}
	err = r.db.WithContext(ctx).
		Table(table).
		Select("rating_mean, rating_count").
		Where("id = ?", target.ID).
		Take(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.RatingMean, row.RatingCount, nil
}

// Recompute rebuilds every aggregate of kind from the review log and returns
// the number of rows that were out of date. Running it twice changes nothing.
func (r *Repository) Recompute(ctx context.Context, kind enums.ReviewTargetKind) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	countExpr := "(SELECT COUNT(*) FROM reviews rv WHERE rv.target_kind = ? AND rv.target_id = " + table + ".id)"
	meanExpr := "COALESCE((SELECT AVG(rv.rating * 1.0) FROM reviews rv WHERE rv.target_kind = ? AND rv.target_id = " + table + ".id), 0)"
	result := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %[1]s
SET rating_count = %[2]s,
    rating_mean = %[3]s
WHERE rating_count <> %[2]s OR ABS(rating_mean - %[3]s) > 0.000001`, table, countExpr, meanExpr),
		kind, kind, kind, kind,
	)
	return result.RowsAffected, result.Error
}

func tableFor(kind enums.ReviewTargetKind) (string, error) {
	switch kind {
	case enums.ReviewTargetBook:
		return "books", nil
	case enums.ReviewTargetUser:
		return "users", nil
	default:
		return "", fmt.Errorf("unknown review target kind %q", kind)
	}
}
