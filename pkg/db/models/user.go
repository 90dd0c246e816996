package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// User represents the canonical identity and its public profile.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Email         string         `gorm:"type:text;not null;uniqueIndex:ux_users_email"`
	PasswordHash  string         `gorm:"column:password_hash;not null"`
	DisplayName   string         `gorm:"column:display_name;not null"`
	PhotoURL      *string        `gorm:"column:photo_url"`
	Bio           *string        `gorm:"column:bio"`
	Phone         *string        `gorm:"column:phone"`
	EmailVerified bool           `gorm:"column:email_verified;not null;default:false"`
	Role          enums.UserRole `gorm:"column:role;type:text;not null;default:'member'"`
	Banned        bool           `gorm:"column:banned;not null;default:false"`
	BanReason     *string        `gorm:"column:ban_reason"`
	BannedAt      *time.Time     `gorm:"column:banned_at"`
	RatingMean    float64        `gorm:"column:rating_mean;type:double precision;not null;default:0"`
	RatingCount   int            `gorm:"column:rating_count;not null;default:0"`
	LastLoginAt   *time.Time     `gorm:"column:last_login_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.UserRoleMember
	}
	return nil
}
