package auth

import (
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID *uuid.UUID
	Email  string
	Role   enums.CallerRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
// Guests carry only an email; customers and admins carry a user id.
type AccessTokenClaims struct {
	UserID *uuid.UUID       `json:"user_id,omitempty"`
	Email  string           `json:"email,omitempty"`
	Role   enums.CallerRole `json:"role"`
	jwt.RegisteredClaims
}
