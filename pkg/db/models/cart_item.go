package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem mirrors one book in a user's cart, keyed by (user, book).
type CartItem struct {
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	BookID         uuid.UUID `gorm:"column:book_id;type:uuid;primaryKey"`
	OwnerID        uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	Author         string    `gorm:"column:author;not null"`
	CoverURL       *string   `gorm:"column:cover_url"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotalCents returns price times quantity.
func (c CartItem) LineTotalCents() int64 {
	return c.UnitPriceCents * int64(c.Quantity)
}
