package auth

import (
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Role          enums.UserRole
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	// JTI is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID      `json:"user_id"`
	Role          enums.UserRole `json:"role"`
	DisplayName   string         `json:"name,omitempty"`
	PhotoURL      string         `json:"picture,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	jwt.RegisteredClaims
}
