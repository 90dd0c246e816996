package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
)

// Repository persists cart lines keyed by (user_id, book_id).
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

// Increment adds item.Quantity to an existing line or inserts the line.
// The snapshot columns are refreshed from item either way.
func (r *Repository) Increment(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":         gorm.Expr("cart_items.quantity + ?", item.Quantity),
			"title":            item.Title,
			"author":           item.Author,
			"cover_url":        item.CoverURL,
			"unit_price_cents": item.UnitPriceCents,
			"owner_id":         item.OwnerID,
			"updated_at":       time.Now().UTC(),
		}),
	}).Create(item).Error
}

// Upsert writes the line with exactly item.Quantity.
func (r *Repository) Upsert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "title", "author", "cover_url", "unit_price_cents", "owner_id", "updated_at"}),
	}).Create(item).Error
}

func (r *Repository) Find(ctx context.Context, userID, bookID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "user_id = ? AND book_id = ?", userID, bookID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, book_id ASC").
		Find(&items).Error
	return items, err
}

func (r *Repository) Delete(ctx context.Context, userID, bookID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
