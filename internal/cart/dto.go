package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

type AddItemInput struct {
	BookID   uuid.UUID `json:"book_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type SetQuantityInput struct {
	Quantity int `json:"quantity" validate:"min=1,max=99"`
}

type ItemDTO struct {
	BookID         uuid.UUID `json:"book_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	CoverURL       *string   `json:"cover_url,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CartDTO is the full cart with its subtotal.
type CartDTO struct {
	Items         []ItemDTO `json:"items"`
	SubtotalCents int64     `json:"subtotal_cents"`
	ItemCount     int       `json:"item_count"`
}

func itemFromModel(m models.CartItem) ItemDTO {
	return ItemDTO{
		BookID:         m.BookID,
		OwnerID:        m.OwnerID,
		Title:          m.Title,
		Author:         m.Author,
		CoverURL:       m.CoverURL,
		UnitPriceCents: m.UnitPriceCents,
		Quantity:       m.Quantity,
		LineTotalCents: m.LineTotalCents(),
		UpdatedAt:      m.UpdatedAt,
	}
}

// Subtotal sums price times quantity over items.
func Subtotal(items []models.CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotalCents()
	}
	return total
}

func toDTO(items []models.CartItem) CartDTO {
	out := CartDTO{Items: make([]ItemDTO, 0, len(items)), SubtotalCents: Subtotal(items)}
	for _, it := range items {
		out.Items = append(out.Items, itemFromModel(it))
		out.ItemCount += it.Quantity
	}
	return out
}
