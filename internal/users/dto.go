package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

// ProfileDTO is the public view of a user.
type ProfileDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	RatingMean  float64   `json:"rating_mean"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserDTO is the transport shape returned to the account owner. It omits credentials.
type UserDTO struct {
	ProfileDTO
	Email         string         `json:"email"`
	Phone         *string        `json:"phone,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	Role          enums.UserRole `json:"role"`
	Banned        bool           `json:"banned"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Phone        *string
	Role         enums.UserRole
}

// UpdateProfileInput carries the editable profile fields. Nil fields are left untouched.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=80"`
	PhotoURL    *string `json:"photo_url,omitempty" validate:"omitempty,url"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// BanInput describes an admin moderation action.
type BanInput struct {
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
	TargetID    uuid.UUID
	Reason      string
}

func ProfileFromModel(u *models.User) *ProfileDTO {
	if u == nil {
		return nil
	}
	return &ProfileDTO{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Bio:         u.Bio,
		RatingMean:  u.RatingMean,
		RatingCount: u.RatingCount,
		CreatedAt:   u.CreatedAt,
	}
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ProfileDTO:    *ProfileFromModel(u),
		Email:         u.Email,
		Phone:         u.Phone,
		EmailVerified: u.EmailVerified,
		Role:          u.Role,
		Banned:        u.Banned,
		LastLoginAt:   u.LastLoginAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleMember
	}
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		DisplayName:  c.DisplayName,
		Phone:        c.Phone,
		Role:         role,
	}
}
