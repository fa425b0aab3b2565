package auth

import (
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT. Tokens
// are minted by the identity service; this service only verifies them.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	PartnerID *uuid.UUID
	Role      enums.MemberRole
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID        `json:"user_id"`
	PartnerID *uuid.UUID       `json:"partner_id,omitempty"`
	Role      enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
