// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"workshop/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrVerificationTokenNotFound is returned when no verification token
// matches the hash and purpose.
var ErrVerificationTokenNotFound = errors.New("verification token not found")

// VerificationTokenRepository persists single-use identity-proving tokens.
type VerificationTokenRepository interface {
	// CreateVerificationToken persists a new token record.
	CreateVerificationToken(ctx context.Context, token *entity.VerificationToken) error

	// FindVerificationToken retrieves a record by its hash and purpose.
	// Expiry is checked by the caller so redemption and sweep share one
	// lookup path.
	FindVerificationToken(ctx context.Context, tokenHash, purpose string) (*entity.VerificationToken, error)

	// DeleteVerificationToken removes a record by ID. Redemption calls this
	// in the same transaction as the credential update (single-use).
	DeleteVerificationToken(ctx context.Context, id uuid.UUID) error

	// DeleteVerificationTokensByPrincipalID removes all outstanding tokens
	// for a principal, e.g. after a successful reset.
	DeleteVerificationTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) error

	// DeleteExpiredVerificationTokens sweeps expired rows.
	DeleteExpiredVerificationTokens(ctx context.Context) (int64, error)
}
