package usecase

import (
	"context"

	"workshop/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase defines the interface for session management operations.
// Callers pass the PrincipalRef resolved from a verified access token;
// every operation is scoped to that principal's own sessions.
type SessionUsecase interface {
	// GetActiveSessions lists the principal's active sessions, metadata
	// only. currentTokenHash, when non-empty, marks the calling session.
	GetActiveSessions(ctx context.Context, principal entity.PrincipalRef, currentTokenHash string) ([]*entity.SessionInfo, error)

	// RevokeSession ends one session after an ownership check.
	RevokeSession(ctx context.Context, principal entity.PrincipalRef, sessionID uuid.UUID) error

	// RevokeAllSessions ends every session of the principal.
	RevokeAllSessions(ctx context.Context, principal entity.PrincipalRef) error

	// CleanupExpiredSessions sweeps expired and revoked refresh rows plus
	// expired verification tokens. Returns the number of rows removed.
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
