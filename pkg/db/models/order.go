package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// ShippingSnapshot copies the purchaser's delivery details at checkout time.
type ShippingSnapshot struct {
	Name    string `gorm:"column:name;not null" json:"name"`
	Phone   string `gorm:"column:phone;not null" json:"phone"`
	Address string `gorm:"column:address;not null" json:"address"`
	City    string `gorm:"column:city;not null" json:"city"`
	Region  string `gorm:"column:region;not null" json:"region"`
}

// PaymentRecord is the gateway outcome attached to an order.
type PaymentRecord struct {
	Method        string              `gorm:"column:method;not null"`
	TransactionID string              `gorm:"column:transaction_id;not null;uniqueIndex:ux_orders_payment_transaction"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string              `gorm:"column:currency;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
}

// Order is the immutable purchase record created on checkout confirmation.
type Order struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PurchaserID      uuid.UUID         `gorm:"column:purchaser_id;type:uuid;not null;index:ix_orders_purchaser"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Shipping         ShippingSnapshot  `gorm:"embedded;embeddedPrefix:shipping_"`
	Payment          PaymentRecord     `gorm:"embedded;embeddedPrefix:payment_"`
	SubtotalCents    int64             `gorm:"column:subtotal_cents;not null"`
	ShippingFeeCents int64             `gorm:"column:shipping_fee_cents;not null"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a purchased book at its checkout price.
type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_order_items_order"`
	BookID         uuid.UUID `gorm:"column:book_id;type:uuid;not null;index:ix_order_items_book"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index:ix_order_items_seller"`
	Title          string    `gorm:"column:title;not null"`
	Author         string    `gorm:"column:author;not null"`
	CoverURL       *string   `gorm:"column:cover_url"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
