// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, revocable session. Only the SHA-256
// hash of the opaque secret is stored; the raw secret lives in the client
// cookie and nowhere else.
type RefreshToken struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Role        Role // Discriminates which principal table owns the session.
	TokenHash   string
	ClientIP    string
	UserAgent   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time // Set when the token is rotated out or revoked.
	ReplacedBy  *uuid.UUID // Successor record when rotation retired this one.
}

// Active reports whether the token may still be redeemed at the given time.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// VerificationToken is a single-use, time-limited proof of identifier
// control, scoped to one principal and one purpose. Redemption deletes it.
type VerificationToken struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Role        Role
	TokenHash   string
	Purpose     string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// PurposePasswordReset is the purpose tag for password-reset tokens.
const PurposePasswordReset = "password_reset"

// SessionInfo is the session-listing view of a refresh token. It carries
// metadata only; the token hash never leaves the persistence layer.
type SessionInfo struct {
	ID          uuid.UUID  `json:"id"`
	PrincipalID uuid.UUID  `json:"principalId"`
	ClientIP    string     `json:"clientIp,omitempty"`
	UserAgent   string     `json:"userAgent,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Current     bool       `json:"current"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}
