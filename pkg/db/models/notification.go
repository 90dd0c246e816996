package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// Notification is an in-app message addressed to one user.
// OrderID and BookID are set for order fan-out and are unique together.
type Notification struct {
	ID          uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID                  `gorm:"column:recipient_id;type:uuid;not null;index:ix_notifications_recipient"`
	SenderID    *uuid.UUID                 `gorm:"column:sender_id;type:uuid"`
	Category    enums.NotificationCategory `gorm:"column:category;type:text;not null"`
	Message     string                     `gorm:"column:message;type:text;not null"`
	Link        *string                    `gorm:"column:link;type:text"`
	OrderID     *uuid.UUID                 `gorm:"column:order_id;type:uuid;uniqueIndex:ux_notifications_order_book,priority:1"`
	BookID      *uuid.UUID                 `gorm:"column:book_id;type:uuid;uniqueIndex:ux_notifications_order_book,priority:2"`
	Read        bool                       `gorm:"column:read;not null;default:false"`
	ReadAt      *time.Time                 `gorm:"column:read_at"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
