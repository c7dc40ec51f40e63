package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Role      enums.Role
	TTL       time.Duration
	JTI       string
}

// AccessTokenClaims represents the typed JWT presented by clients. Tokens are
// issued by the identity service; this package only verifies them.
type AccessTokenClaims struct {
	AccountID uuid.UUID  `json:"account_id"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}
