package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// LineItemInput is one purchased book as captured from the cart.
type LineItemInput struct {
	BookID         uuid.UUID
	SellerID       uuid.UUID
	Title          string
	Author         string
	CoverURL       *string
	UnitPriceCents int64
	Quantity       int
}

// PaymentInput is the gateway outcome reported by the payment callback.
type PaymentInput struct {
	Method        string
	TransactionID string
	// AmountMinor is the charged amount in minor currency units (cents).
	AmountMinor int64
	Currency    string
	Status      enums.PaymentStatus
	PaidAt      *time.Time
}

// CreateOrderInput carries everything needed to record a purchase.
type CreateOrderInput struct {
	PurchaserID      uuid.UUID
	Shipping         models.ShippingSnapshot
	Items            []LineItemInput
	ShippingFeeCents int64
	Payment          PaymentInput
}

// OrderItemDTO is the API view of a purchased line.
type OrderItemDTO struct {
	BookID         uuid.UUID `json:"book_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	CoverURL       *string   `json:"cover_url,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// PaymentDTO mirrors models.PaymentRecord.
type PaymentDTO struct {
	Method        string              `json:"method"`
	TransactionID string              `json:"transaction_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Status        enums.PaymentStatus `json:"status"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID               uuid.UUID               `json:"id"`
	PurchaserID      uuid.UUID               `json:"purchaser_id"`
	Status           enums.OrderStatus       `json:"status"`
	Shipping         models.ShippingSnapshot `json:"shipping"`
	Payment          PaymentDTO              `json:"payment"`
	SubtotalCents    int64                   `json:"subtotal_cents"`
	ShippingFeeCents int64                   `json:"shipping_fee_cents"`
	TotalCents       int64                   `json:"total_cents"`
	Items            []OrderItemDTO          `json:"items"`
	CreatedAt        time.Time               `json:"created_at"`
}

func FromModel(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			BookID:         it.BookID,
			SellerID:       it.SellerID,
			Title:          it.Title,
			Author:         it.Author,
			CoverURL:       it.CoverURL,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return OrderDTO{
		ID:          o.ID,
		PurchaserID: o.PurchaserID,
		Status:      o.Status,
		Shipping:    o.Shipping,
		Payment: PaymentDTO{
			Method:        o.Payment.Method,
			TransactionID: o.Payment.TransactionID,
			Amount:        o.Payment.Amount,
			Currency:      o.Payment.Currency,
			Status:        o.Payment.Status,
			PaidAt:        o.Payment.PaidAt,
		},
		SubtotalCents:    o.SubtotalCents,
		ShippingFeeCents: o.ShippingFeeCents,
		TotalCents:       o.SubtotalCents + o.ShippingFeeCents,
		Items:            items,
		CreatedAt:        o.CreatedAt,
	}
}
