package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
)

// AccessTokenPayload captures the data the identity service puts in a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	TenantID   *uuid.UUID
	Role       enums.UserRole
	TenantType *enums.TenantType
	JTI        string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID         `json:"user_id"`
	TenantID   *uuid.UUID        `json:"tenant_id,omitempty"`
	Role       enums.UserRole    `json:"role"`
	TenantType *enums.TenantType `json:"tenant_type,omitempty"`
	jwt.RegisteredClaims
}
