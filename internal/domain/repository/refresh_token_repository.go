// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"workshop/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when a refresh token is not found.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired is returned when a refresh token has expired.
	ErrRefreshTokenExpired = errors.New("refresh token has expired")
)

// RefreshTokenRepository defines the interface for refresh token and session
// management operations. This supports multi-device login, rotation and
// remote logout functionality.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new refresh token, representing a session.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindRefreshTokenByHash retrieves a refresh token record by its securely
	// stored hash. Revoked records are returned (with RevokedAt set) so the
	// caller can detect reuse of a rotated-out secret; expired unrevoked
	// records yield ErrRefreshTokenExpired.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// FindRefreshTokenByID retrieves a refresh token record by its unique ID.
	FindRefreshTokenByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// FindRefreshTokensByPrincipalID retrieves all active refresh tokens for a
	// principal, newest first.
	FindRefreshTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) ([]*entity.RefreshToken, error)

	// MarkRefreshTokenRevoked stamps RevokedAt (and optionally ReplacedBy)
	// on a record. Rotation uses this instead of deleting so that reuse of a
	// retired secret remains detectable until the sweep removes the row.
	MarkRefreshTokenRevoked(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error

	// DeleteRefreshToken removes a refresh token by its ID, ending a session.
	DeleteRefreshToken(ctx context.Context, id uuid.UUID) error

	// DeleteRefreshTokenByHash deletes a refresh token by its hash.
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error

	// DeleteRefreshTokensByPrincipalID removes all refresh tokens for a
	// principal. This backs "logout everywhere" and breach containment.
	DeleteRefreshTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) error

	// DeleteExpiredRefreshTokens removes expired and revoked rows. Returns
	// the number of rows swept.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	// CountActiveSessionsByPrincipalID returns the number of active
	// (non-expired, non-revoked) sessions for a principal.
	CountActiveSessionsByPrincipalID(ctx context.Context, principalID uuid.UUID) (int, error)
}
