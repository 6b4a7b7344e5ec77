// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"workshop/config"
	deliverycontext "workshop/internal/delivery/context"
	"workshop/internal/domain/entity"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/domain/repository"
	"workshop/internal/domain/service"
	"workshop/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager         repository.TransactionManager
	refreshTokenRepo  repository.RefreshTokenRepository
	hasher            service.PasswordHasher
	tokenService      service.TokenService
	loginGate         service.LoginGate
	maxActiveSessions int
	resetTokenTTL     time.Duration
	logger            *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	LoginGate        service.LoginGate
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	maxActiveSessions := 0
	resetTokenTTL := time.Hour
	if params.Config != nil && params.Config.Auth != nil {
		maxActiveSessions = params.Config.Auth.MaxActiveSessions
		if params.Config.Auth.ResetTokenTTL > 0 {
			resetTokenTTL = params.Config.Auth.ResetTokenTTL
		}
	}

	return &authService{
		txManager:         params.TxManager,
		refreshTokenRepo:  params.RefreshTokenRepo,
		hasher:            params.Hasher,
		tokenService:      params.TokenService,
		loginGate:         params.LoginGate,
		maxActiveSessions: maxActiveSessions,
		resetTokenTTL:     resetTokenTTL,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login authenticates a principal of an explicit kind and opens a session.
// Unknown identifier, wrong password, missing credential and a non-approved
// shop all collapse into ErrInvalidCredentials.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("kind", input.Kind.String()))

	if !input.Kind.IsValid() {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "unknown principal kind")
	}

	allowed, err := srv.loginGate.Allow(ctx, input.Kind, input.Identifier, input.ClientIP)
	if err != nil {
		return nil, errors.Wrap(err, "login gate check failed")
	}
	if !allowed {
		return nil, errors.Wrap(domainerrors.ErrTooManyAttempts, "login gate rejected attempt")
	}

	principal, err := srv.loadLoginPrincipal(ctx, input.Kind, input.Identifier)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("kind", input.Kind.String()), slog.Any("error", err))

		return nil, err
	}

	if err := authenticatable(principal); err != nil {
		srv.log(ctx).Warn("Login refused", slog.String("kind", input.Kind.String()), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	// Check password outside transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, principal.CredentialHash()) {
		srv.log(ctx).Warn("Login failed", slog.String("kind", input.Kind.String()), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	ref := principal.Ref()

	accessToken, err := srv.tokenService.IssueAccessToken(ref)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	refreshSecret, err := srv.tokenService.NewOpaqueSecret()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate refresh secret")
	}

	record := srv.newRefreshRecord(ref, refreshSecret, input.ClientIP, input.UserAgent)
	if err := srv.persistLoginSession(ctx, ref.ID, record); err != nil {
		srv.log(ctx).Error("Failed to persist session", slog.Any("principalID", ref.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to persist login session")
	}

	srv.log(ctx).Debug("Login succeeded", slog.Any("principalID", ref.ID), slog.String("role", ref.Role.String()))

	return &usecase.LoginOutput{
		AccessToken:   accessToken,
		RefreshSecret: refreshSecret,
		SessionID:     record.ID.String(),
		Principal:     ref,
	}, nil
}

func (srv *authService) loadLoginPrincipal(ctx context.Context, kind entity.Kind, identifier string) (entity.Principal, error) {
	var principal entity.Principal

	// Load from primary in a short transaction to avoid stale reads on replicas.
	if err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, findErr := repoFactory.PrincipalRepo().FindByIdentifier(ctx, kind, identifier)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrPrincipalNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
			}

			return errors.Wrap(findErr, "failed to find principal")
		}
		principal = found

		return nil
	}); err != nil {
		return nil, err
	}

	return principal, nil
}

// authenticatable rejects principals that may never hold a session: those
// without a stored credential and shops outside approved status.
func authenticatable(principal entity.Principal) error {
	if principal.CredentialHash() == "" {
		return errors.New("principal has no credential")
	}
	if shop, ok := principal.(*entity.Shop); ok && shop.Status != entity.ShopStatusApproved {
		return errors.Errorf("shop status %s does not permit login", shop.Status)
	}

	return nil
}

func (srv *authService) newRefreshRecord(ref entity.PrincipalRef, secret, clientIP, userAgent string) *entity.RefreshToken {
	return &entity.RefreshToken{
		PrincipalID: ref.ID,
		Role:        ref.Role,
		TokenHash:   srv.tokenService.HashSecret(secret),
		ClientIP:    clientIP,
		UserAgent:   userAgent,
		ExpiresAt:   time.Now().Add(srv.tokenService.RefreshTokenDuration()),
	}
}

// persistLoginSession stores the refresh record, evicting the oldest active
// sessions when the per-principal limit is reached.
func (srv *authService) persistLoginSession(ctx context.Context, principalID uuid.UUID, record *entity.RefreshToken) error {
	if srv.maxActiveSessions <= 0 {
		// No session limit: direct insert avoids unnecessary transaction overhead.
		return srv.refreshTokenRepo.CreateRefreshToken(ctx, record)
	}

	// Keep count/evict/insert in one short transaction.
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		active, err := refreshRepo.FindRefreshTokensByPrincipalID(ctx, principalID)
		if err != nil {
			return errors.Wrap(err, "failed to list active sessions")
		}

		// Tokens are ordered newest first; drop from the tail until the new
		// session fits under the limit.
		for len(active) >= srv.maxActiveSessions {
			oldest := active[len(active)-1]
			if err := refreshRepo.DeleteRefreshToken(ctx, oldest.ID); err != nil {
				return errors.Wrap(err, "failed to evict oldest session")
			}
			srv.log(ctx).Info("Evicted oldest session at limit",
				slog.Any("principalID", principalID),
				slog.Any("sessionID", oldest.ID))
			active = active[:len(active)-1]
		}

		return refreshRepo.CreateRefreshToken(ctx, record)
	})
}

// Refresh redeems a refresh secret, rotates it and mints a new access token.
// The minted token is always bound to the stored record's principal. Reuse of
// a rotated-out secret revokes every session of that principal.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.RefreshOutput, error) {
	srv.log(ctx).Debug("Attempting to refresh session")

	if input.RefreshSecret == "" {
		return nil, errors.Wrap(domainerrors.ErrRefreshInvalid, "no refresh secret presented")
	}

	tokenHash := srv.tokenService.HashSecret(input.RefreshSecret)

	var output *usecase.RefreshOutput
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		record, err := refreshRepo.FindRefreshTokenByHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenExpired) {
				return errors.Wrap(domainerrors.ErrRefreshInvalid, "refresh token not redeemable")
			}

			return errors.Wrap(err, "failed to find refresh token")
		}

		if record.RevokedAt != nil {
			// A rotated-out secret came back: someone other than the rotation
			// winner holds it. Contain by ending every session.
			srv.log(ctx).Warn("Revoked refresh secret reused, revoking all sessions",
				slog.Any("principalID", record.PrincipalID),
				slog.Any("sessionID", record.ID))

			if err := refreshRepo.DeleteRefreshTokensByPrincipalID(ctx, record.PrincipalID); err != nil {
				return errors.Wrap(err, "failed to revoke sessions after reuse")
			}

			return errors.Wrap(domainerrors.ErrRefreshInvalid, "refresh token not redeemable")
		}

		principal, err := repoFactory.PrincipalRepo().FindByID(ctx, entity.KindOf(record.Role), record.PrincipalID)
		if err != nil {
			if errors.Is(err, repository.ErrPrincipalNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshInvalid, "session principal no longer exists")
			}

			return errors.Wrap(err, "failed to load session principal")
		}
		if err := authenticatable(principal); err != nil {
			return errors.Wrap(domainerrors.ErrRefreshInvalid, "session principal may no longer authenticate")
		}

		ref := principal.Ref()

		newSecret, err := srv.tokenService.NewOpaqueSecret()
		if err != nil {
			return errors.Wrap(err, "failed to generate replacement secret")
		}

		replacement := srv.newRefreshRecord(ref, newSecret, input.ClientIP, input.UserAgent)
		if err := refreshRepo.CreateRefreshToken(ctx, replacement); err != nil {
			return errors.Wrap(err, "failed to store replacement token")
		}

		if err := refreshRepo.MarkRefreshTokenRevoked(ctx, record.ID, &replacement.ID); err != nil {
			return errors.Wrap(err, "failed to retire redeemed token")
		}

		accessToken, err := srv.tokenService.IssueAccessToken(ref)
		if err != nil {
			return errors.Wrap(err, "failed to issue access token")
		}

		output = &usecase.RefreshOutput{
			AccessToken:   accessToken,
			RefreshSecret: newSecret,
			SessionID:     replacement.ID.String(),
			Principal:     ref,
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Debug("Session refreshed", slog.Any("principalID", output.Principal.ID))

	return output, nil
}

// Logout ends the session identified by the presented refresh secret.
// Repeating a logout is not an error.
func (srv *authService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	srv.log(ctx).Debug("Attempting to log out")

	if input.RefreshSecret == "" {
		return nil
	}

	tokenHash := srv.tokenService.HashSecret(input.RefreshSecret)

	if err := srv.refreshTokenRepo.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		srv.log(ctx).Error("Failed to delete refresh token", slog.Any("error", err))

		return errors.Wrap(err, "failed to delete refresh token")
	}
	srv.log(ctx).Debug("Successfully logged out")

	return nil
}

// RequestPasswordReset issues a single-use reset token for the principal.
// The response is uniform whether or not the principal exists; the raw token
// leaves this layer only for out-of-band delivery.
func (srv *authService) RequestPasswordReset(ctx context.Context, input *usecase.ResetRequestInput) (*usecase.ResetRequestOutput, error) {
	srv.log(ctx).Debug("Password reset requested", slog.String("kind", input.Kind.String()))

	if !input.Kind.IsValid() {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "unknown principal kind")
	}

	var token string
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		principal, err := repoFactory.PrincipalRepo().FindByIdentifier(ctx, input.Kind, input.Identifier)
		if err != nil {
			if errors.Is(err, repository.ErrPrincipalNotFound) {
				// Uniform outcome: no token is issued but the caller cannot tell.
				return nil
			}

			return errors.Wrap(err, "failed to find principal")
		}

		verificationRepo := repoFactory.VerificationTokenRepo()

		// Only the newest request stays redeemable.
		if err := verificationRepo.DeleteVerificationTokensByPrincipalID(ctx, principal.Ref().ID); err != nil {
			return errors.Wrap(err, "failed to clear previous reset tokens")
		}

		secret, err := srv.tokenService.NewOpaqueSecret()
		if err != nil {
			return errors.Wrap(err, "failed to generate reset secret")
		}

		ref := principal.Ref()
		record := &entity.VerificationToken{
			PrincipalID: ref.ID,
			Role:        ref.Role,
			TokenHash:   srv.tokenService.HashSecret(secret),
			Purpose:     entity.PurposePasswordReset,
			ExpiresAt:   time.Now().Add(srv.resetTokenTTL),
		}
		if err := verificationRepo.CreateVerificationToken(ctx, record); err != nil {
			return errors.Wrap(err, "failed to store reset token")
		}

		token = secret

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute reset request transaction", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute reset request transaction")
	}

	return &usecase.ResetRequestOutput{Token: token}, nil
}

// ConfirmPasswordReset redeems a reset token, replaces the credential and
// revokes every session of the principal, all in one transaction. Every
// mismatch surfaces as the same ErrVerificationTokenInvalid.
func (srv *authService) ConfirmPasswordReset(ctx context.Context, input *usecase.ResetConfirmInput) error {
	srv.log(ctx).Debug("Password reset confirmation", slog.String("kind", input.Kind.String()))

	if !input.Kind.IsValid() {
		return errors.Wrap(domainerrors.ErrValidationFailed, "unknown principal kind")
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		principal, err := repoFactory.PrincipalRepo().FindByIdentifier(ctx, input.Kind, input.Identifier)
		if err != nil {
			if errors.Is(err, repository.ErrPrincipalNotFound) {
				return errors.Wrap(domainerrors.ErrVerificationTokenInvalid, "reset confirmation failed")
			}

			return errors.Wrap(err, "failed to find principal")
		}
		ref := principal.Ref()

		verificationRepo := repoFactory.VerificationTokenRepo()

		record, err := verificationRepo.FindVerificationToken(ctx, srv.tokenService.HashSecret(input.Token), entity.PurposePasswordReset)
		if err != nil {
			if errors.Is(err, repository.ErrVerificationTokenNotFound) {
				return errors.Wrap(domainerrors.ErrVerificationTokenInvalid, "reset confirmation failed")
			}

			return errors.Wrap(err, "failed to find reset token")
		}

		// The token must belong to the principal named in the request.
		if record.PrincipalID != ref.ID || record.ExpiresAt.Before(time.Now()) {
			return errors.Wrap(domainerrors.ErrVerificationTokenInvalid, "reset confirmation failed")
		}

		if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
			return errors.Wrap(domainerrors.ErrPasswordStrength, err.Error())
		}

		hashed, err := srv.hasher.Hash(input.NewPassword)
		if err != nil {
			return errors.Wrap(err, "failed to hash new password")
		}

		if err := repoFactory.PrincipalRepo().UpdatePasswordHash(ctx, input.Kind, ref.ID, hashed); err != nil {
			return errors.Wrap(err, "failed to update password")
		}

		// Single-use: the row goes away with the credential change.
		if err := verificationRepo.DeleteVerificationToken(ctx, record.ID); err != nil {
			return errors.Wrap(err, "failed to consume reset token")
		}

		// A changed credential invalidates every open session.
		if err := repoFactory.RefreshTokenRepo().DeleteRefreshTokensByPrincipalID(ctx, ref.ID); err != nil {
			return errors.Wrap(err, "failed to revoke sessions after reset")
		}

		srv.log(ctx).Info("Password reset completed", slog.Any("principalID", ref.ID))

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Password reset confirmation failed", slog.Any("error", err))

		return err
	}

	return nil
}
