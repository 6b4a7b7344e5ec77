// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "workshop/internal/delivery/context"
	"workshop/internal/domain/entity"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/domain/repository"
	"workshop/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager repository.TransactionManager
	logger    *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	txManager repository.TransactionManager,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		txManager: txManager,
		logger:    logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// GetActiveSessions retrieves all active sessions for a principal. Only
// metadata crosses this boundary; token hashes stay in the store.
func (srv *sessionService) GetActiveSessions(ctx context.Context, principal entity.PrincipalRef, currentTokenHash string) ([]*entity.SessionInfo, error) {
	srv.log(ctx).Debug("Getting active sessions", slog.Any("principalID", principal.ID))

	var sessions []*entity.SessionInfo

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokens, err := repoFactory.RefreshTokenRepo().FindRefreshTokensByPrincipalID(ctx, principal.ID)
		if err != nil {
			return errors.Wrap(err, "failed to find refresh tokens")
		}

		for _, token := range tokens {
			sessions = append(sessions, &entity.SessionInfo{
				ID:          token.ID,
				PrincipalID: token.PrincipalID,
				ClientIP:    token.ClientIP,
				UserAgent:   token.UserAgent,
				CreatedAt:   token.CreatedAt,
				ExpiresAt:   token.ExpiresAt,
				Current:     currentTokenHash != "" && token.TokenHash == currentTokenHash,
				RevokedAt:   token.RevokedAt,
			})
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to get active sessions", slog.Any("error", err), slog.Any("principalID", principal.ID))

		return nil, errors.Wrap(err, "failed to get active sessions")
	}
	srv.log(ctx).Debug("Successfully retrieved active sessions", slog.Any("principalID", principal.ID), slog.Int("count", len(sessions)))

	return sessions, nil
}

// RevokeSession revokes a specific session after verifying ownership.
func (srv *sessionService) RevokeSession(ctx context.Context, principal entity.PrincipalRef, sessionID uuid.UUID) error {
	srv.log(ctx).Info("Revoking session", slog.Any("principalID", principal.ID), slog.Any("sessionID", sessionID))

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		token, err := refreshRepo.FindRefreshTokenByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrNotFound, "session not found")
			}

			return errors.Wrap(err, "failed to find session")
		}

		if token.PrincipalID != principal.ID {
			return errors.Wrap(domainerrors.ErrForbidden, "session does not belong to principal")
		}

		if err := refreshRepo.DeleteRefreshToken(ctx, sessionID); err != nil {
			return errors.Wrap(err, "failed to delete session")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to revoke session", slog.Any("error", err), slog.Any("principalID", principal.ID), slog.Any("sessionID", sessionID))

		return err
	}
	srv.log(ctx).Info("Successfully revoked session", slog.Any("principalID", principal.ID), slog.Any("sessionID", sessionID))

	return nil
}

// RevokeAllSessions revokes every session of the principal.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, principal entity.PrincipalRef) error {
	srv.log(ctx).Info("Revoking all sessions", slog.Any("principalID", principal.ID))

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.RefreshTokenRepo().DeleteRefreshTokensByPrincipalID(ctx, principal.ID); err != nil {
			return errors.Wrap(err, "failed to delete refresh tokens")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("error", err), slog.Any("principalID", principal.ID))

		return errors.Wrap(err, "failed to revoke all sessions")
	}
	srv.log(ctx).Info("Successfully revoked all sessions", slog.Any("principalID", principal.ID))

	return nil
}

// CleanupExpiredSessions sweeps expired and revoked refresh rows plus
// expired verification tokens.
func (srv *sessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	srv.log(ctx).Debug("Cleaning up expired sessions")

	var removed int64

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		swept, err := repoFactory.RefreshTokenRepo().DeleteExpiredRefreshTokens(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to sweep refresh tokens")
		}
		removed += swept

		swept, err = repoFactory.VerificationTokenRepo().DeleteExpiredVerificationTokens(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to sweep verification tokens")
		}
		removed += swept

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to cleanup expired sessions", slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to cleanup expired sessions")
	}

	if removed > 0 {
		srv.log(ctx).Info("Swept expired session rows", slog.Int64("removed", removed))
	}

	return removed, nil
}
