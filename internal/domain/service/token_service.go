package service

import (
	"time"

	"workshop/internal/domain/entity"

	"github.com/google/uuid"
)

// AccessClaims is the verified claim set of an access token.
type AccessClaims struct {
	PrincipalID uuid.UUID
	Role        entity.Role
	ShopID      *uuid.UUID
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Ref returns the principal projection carried by the claims.
func (c *AccessClaims) Ref() entity.PrincipalRef {
	return entity.PrincipalRef{ID: c.PrincipalID, Role: c.Role, ShopID: c.ShopID}
}

// TokenService is the stateless access-token codec plus the opaque-secret
// primitives the refresh and verification flows build on.
type TokenService interface {
	// IssueAccessToken signs a short-lived token for the principal. The TTL
	// is role-dependent: privileged roles get the short TTL.
	IssueAccessToken(ref entity.PrincipalRef) (string, error)

	// VerifyAccessToken checks signature and expiry. Malformed, expired and
	// wrongly signed tokens all produce the same error so callers gain no
	// oracle.
	VerifyAccessToken(token string) (*AccessClaims, error)

	// NewOpaqueSecret returns a fresh URL-safe random secret with at least
	// 32 bytes of entropy, for refresh and verification tokens.
	NewOpaqueSecret() (string, error)

	// HashSecret returns the hex SHA-256 of an opaque secret. Only this
	// value is ever persisted.
	HashSecret(secret string) string

	// RefreshTokenDuration returns the configured refresh-token lifetime.
	RefreshTokenDuration() time.Duration
}
