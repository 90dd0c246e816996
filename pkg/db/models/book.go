package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// Book is a listing offered on the shop by its owner.
type Book struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index:ix_books_owner"`
	Title       string              `gorm:"column:title;not null"`
	Author      string              `gorm:"column:author;not null"`
	Description *string             `gorm:"column:description"`
	CoverURL    *string             `gorm:"column:cover_url"`
	PriceCents  int64               `gorm:"column:price_cents;not null"`
	ListingType enums.ListingType   `gorm:"column:listing_type;type:text;not null"`
	Condition   enums.BookCondition `gorm:"column:condition;type:text;not null"`
	Status      enums.BookStatus    `gorm:"column:status;type:text;not null;default:'available'"`
	RatingMean  float64             `gorm:"column:rating_mean;type:double precision;not null;default:0"`
	RatingCount int                 `gorm:"column:rating_count;not null;default:0"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	if b.Status == "" {
		b.Status = enums.BookStatusAvailable
	}
	return nil
}
