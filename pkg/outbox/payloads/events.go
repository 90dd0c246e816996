package payloads

import (
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a recorded order whose sellers must be notified.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	PurchaserID uuid.UUID `json:"purchaser_id"`
	ItemCount   int       `json:"item_count"`
	Status      string    `json:"status"`
}
