package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// Review is an append-only rating of a book or a user.
type Review struct {
	ID         uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TargetKind enums.ReviewTargetKind `gorm:"column:target_kind;type:text;not null;uniqueIndex:ux_reviews_target_reviewer,priority:1"`
	TargetID   uuid.UUID              `gorm:"column:target_id;type:uuid;not null;uniqueIndex:ux_reviews_target_reviewer,priority:2"`
	ReviewerID uuid.UUID              `gorm:"column:reviewer_id;type:uuid;not null;uniqueIndex:ux_reviews_target_reviewer,priority:3"`
	Rating     int                    `gorm:"column:rating;not null"`
	Comment    *string                `gorm:"column:comment"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
