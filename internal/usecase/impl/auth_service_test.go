package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"workshop/config"
	"workshop/internal/domain/entity"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/domain/repository"
	"workshop/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authServiceFixture struct {
	svc           usecase.AuthUsecase
	principals    *mockPrincipalRepo
	refreshTokens *mockRefreshTokenRepo
	verifications *mockVerificationTokenRepo
	tokens        *stubTokenService
	hasher        *stubHasher
	gate          *stubLoginGate
}

func newAuthServiceFixture(maxActiveSessions int) *authServiceFixture {
	f := &authServiceFixture{
		principals:    new(mockPrincipalRepo),
		refreshTokens: new(mockRefreshTokenRepo),
		verifications: new(mockVerificationTokenRepo),
		tokens:        &stubTokenService{},
		hasher:        &stubHasher{},
		gate:          &stubLoginGate{allow: true},
	}

	factory := &fakeRepoFactory{
		principals:    f.principals,
		refreshTokens: f.refreshTokens,
		verifications: f.verifications,
	}

	f.svc = NewAuthService(AuthServiceParams{
		TxManager:        &fakeTxManager{factory: factory},
		RefreshTokenRepo: f.refreshTokens,
		Hasher:           f.hasher,
		TokenService:     f.tokens,
		LoginGate:        f.gate,
		Config: &config.Config{
			Auth: &config.AuthConfig{
				MaxActiveSessions: maxActiveSessions,
				ResetTokenTTL:     time.Hour,
			},
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return f
}

func newTestCustomer() *entity.Customer {
	return &entity.Customer{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Name:         "User",
		PasswordHash: "hashed:correct-password",
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, "user@example.com").
		Return(customer, nil)
	f.refreshTokens.On("CreateRefreshToken", mock.Anything, mock.AnythingOfType("*entity.RefreshToken")).
		Return(nil)

	out, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindCustomer,
		Identifier: "user@example.com",
		Password:   "correct-password",
		ClientIP:   "10.0.0.1",
		UserAgent:  "test-agent",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshSecret)
	assert.Equal(t, customer.ID, out.Principal.ID)
	assert.Equal(t, entity.RoleCustomer, out.Principal.Role)

	// Only the hash of the secret reaches the store.
	created := f.refreshTokens.Calls[0].Arguments.Get(1).(*entity.RefreshToken)
	assert.Equal(t, f.tokens.HashSecret(out.RefreshSecret), created.TokenHash)
	assert.NotContains(t, created.TokenHash, out.RefreshSecret)
	assert.Equal(t, "10.0.0.1", created.ClientIP)
	assert.Equal(t, "test-agent", created.UserAgent)
}

func TestAuthService_Login_TechnicianCarriesShopScope(t *testing.T) {
	f := newAuthServiceFixture(0)
	shopID := uuid.New()
	tech := &entity.Technician{
		ID:           uuid.New(),
		Email:        "tech@example.com",
		PasswordHash: "hashed:pw-tech-1234",
		Role:         entity.RoleManager,
		ShopID:       shopID,
	}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindTech, "tech@example.com").
		Return(tech, nil)
	f.refreshTokens.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindTech,
		Identifier: "tech@example.com",
		Password:   "pw-tech-1234",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.RoleManager, out.Principal.Role)
	require.NotNil(t, out.Principal.ShopID)
	assert.Equal(t, shopID, *out.Principal.ShopID)
}

func TestAuthService_Login_UnknownIdentifier(t *testing.T) {
	f := newAuthServiceFixture(0)

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, "ghost@example.com").
		Return(nil, repository.ErrPrincipalNotFound)

	_, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindCustomer,
		Identifier: "ghost@example.com",
		Password:   "whatever-123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := newAuthServiceFixture(0)

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, "user@example.com").
		Return(newTestCustomer(), nil)

	_, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindCustomer,
		Identifier: "user@example.com",
		Password:   "wrong-password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	f.refreshTokens.AssertNotCalled(t, "CreateRefreshToken", mock.Anything, mock.Anything)
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	// Unknown identifier, wrong password, pending shop and a shop without a
	// credential must all surface the same error.
	pendingShop := &entity.Shop{
		ID:           uuid.New(),
		Username:     "pending-garage",
		PasswordHash: "hashed:shop-pass-99",
		Status:       entity.ShopStatusPending,
	}
	suspendedShop := &entity.Shop{
		ID:           uuid.New(),
		Username:     "suspended-garage",
		PasswordHash: "hashed:shop-pass-99",
		Status:       entity.ShopStatusSuspended,
	}
	unprovisionedShop := &entity.Shop{
		ID:       uuid.New(),
		Username: "new-garage",
		Status:   entity.ShopStatusApproved,
	}

	cases := []struct {
		name      string
		principal entity.Principal
		findErr   error
		password  string
	}{
		{name: "unknown identifier", findErr: repository.ErrPrincipalNotFound, password: "shop-pass-99"},
		{name: "pending shop", principal: pendingShop, password: "shop-pass-99"},
		{name: "suspended shop", principal: suspendedShop, password: "shop-pass-99"},
		{name: "shop without credential", principal: unprovisionedShop, password: "shop-pass-99"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthServiceFixture(0)
			f.principals.On("FindByIdentifier", mock.Anything, entity.KindShop, mock.Anything).
				Return(tc.principal, tc.findErr)

			_, err := f.svc.Login(context.Background(), &usecase.LoginInput{
				Kind:       entity.KindShop,
				Identifier: "some-garage",
				Password:   tc.password,
			})
			assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
		})
	}
}

func TestAuthService_Login_ApprovedShopSucceeds(t *testing.T) {
	f := newAuthServiceFixture(0)
	shop := &entity.Shop{
		ID:           uuid.New(),
		Username:     "garage",
		PasswordHash: "hashed:shop-pass-99",
		Status:       entity.ShopStatusApproved,
	}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindShop, "garage").Return(shop, nil)
	f.refreshTokens.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindShop,
		Identifier: "garage",
		Password:   "shop-pass-99",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleShop, out.Principal.Role)
}

func TestAuthService_Login_GateBlocked(t *testing.T) {
	f := newAuthServiceFixture(0)
	f.gate.allow = false

	_, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindCustomer,
		Identifier: "user@example.com",
		Password:   "correct-password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrTooManyAttempts)
	// A blocked attempt must not touch the store at all.
	f.principals.AssertNotCalled(t, "FindByIdentifier", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_EvictsOldestAtSessionLimit(t *testing.T) {
	f := newAuthServiceFixture(2)
	customer := newTestCustomer()

	newer := &entity.RefreshToken{ID: uuid.New(), PrincipalID: customer.ID, CreatedAt: time.Now()}
	older := &entity.RefreshToken{ID: uuid.New(), PrincipalID: customer.ID, CreatedAt: time.Now().Add(-time.Hour)}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, "user@example.com").
		Return(customer, nil)
	f.refreshTokens.On("FindRefreshTokensByPrincipalID", mock.Anything, customer.ID).
		Return([]*entity.RefreshToken{newer, older}, nil)
	f.refreshTokens.On("DeleteRefreshToken", mock.Anything, older.ID).Return(nil)
	f.refreshTokens.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Login(context.Background(), &usecase.LoginInput{
		Kind:       entity.KindCustomer,
		Identifier: "user@example.com",
		Password:   "correct-password",
	})
	require.NoError(t, err)

	f.refreshTokens.AssertCalled(t, "DeleteRefreshToken", mock.Anything, older.ID)
	f.refreshTokens.AssertNotCalled(t, "DeleteRefreshToken", mock.Anything, newer.ID)
}

func TestAuthService_Refresh_RotatesSecret(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()

	oldSecret := "old-refresh-secret"
	record := &entity.RefreshToken{
		ID:          uuid.New(),
		PrincipalID: customer.ID,
		Role:        entity.RoleCustomer,
		TokenHash:   f.tokens.HashSecret(oldSecret),
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	f.refreshTokens.On("FindRefreshTokenByHash", mock.Anything, record.TokenHash).Return(record, nil)
	f.principals.On("FindByID", mock.Anything, entity.KindCustomer, customer.ID).Return(customer, nil)
	f.refreshTokens.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)
	f.refreshTokens.On("MarkRefreshTokenRevoked", mock.Anything, record.ID, mock.AnythingOfType("*uuid.UUID")).Return(nil)

	out, err := f.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshSecret: oldSecret})
	require.NoError(t, err)

	assert.NotEmpty(t, out.AccessToken)
	assert.NotEqual(t, oldSecret, out.RefreshSecret)
	assert.Equal(t, customer.ID, out.Principal.ID)

	// The retired record points at its replacement.
	var replacementID uuid.UUID
	for _, call := range f.refreshTokens.Calls {
		if call.Method == "CreateRefreshToken" {
			replacementID = call.Arguments.Get(1).(*entity.RefreshToken).ID
		}
	}
	require.NotEqual(t, uuid.Nil, replacementID)
	f.refreshTokens.AssertCalled(t, "MarkRefreshTokenRevoked", mock.Anything, record.ID, &replacementID)
}

func TestAuthService_Refresh_UnknownSecret(t *testing.T) {
	f := newAuthServiceFixture(0)

	f.refreshTokens.On("FindRefreshTokenByHash", mock.Anything, mock.Anything).
		Return(nil, repository.ErrRefreshTokenNotFound)

	_, err := f.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshSecret: "never-issued"})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshInvalid)
}

func TestAuthService_Refresh_ExpiredSecret(t *testing.T) {
	f := newAuthServiceFixture(0)

	f.refreshTokens.On("FindRefreshTokenByHash", mock.Anything, mock.Anything).
		Return(nil, repository.ErrRefreshTokenExpired)

	_, err := f.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshSecret: "stale"})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshInvalid)
}

func TestAuthService_Refresh_EmptySecret(t *testing.T) {
	f := newAuthServiceFixture(0)

	_, err := f.svc.Refresh(context.Background(), &usecase.RefreshInput{})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshInvalid)
	f.refreshTokens.AssertNotCalled(t, "FindRefreshTokenByHash", mock.Anything, mock.Anything)
}

func TestAuthService_Refresh_ReuseRevokesAllSessions(t *testing.T) {
	f := newAuthServiceFixture(0)
	principalID := uuid.New()

	revokedAt := time.Now().Add(-time.Minute)
	replacement := uuid.New()
	record := &entity.RefreshToken{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Role:        entity.RoleCustomer,
		ExpiresAt:   time.Now().Add(time.Hour),
		RevokedAt:   &revokedAt,
		ReplacedBy:  &replacement,
	}

	f.refreshTokens.On("FindRefreshTokenByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.refreshTokens.On("DeleteRefreshTokensByPrincipalID", mock.Anything, principalID).Return(nil)

	_, err := f.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshSecret: "stolen-secret"})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshInvalid)
	f.refreshTokens.AssertCalled(t, "DeleteRefreshTokensByPrincipalID", mock.Anything, principalID)
	f.refreshTokens.AssertNotCalled(t, "CreateRefreshToken", mock.Anything, mock.Anything)
}

func TestAuthService_Refresh_BindsTokenToStoredPrincipal(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()

	record := &entity.RefreshToken{
		ID:          uuid.New(),
		PrincipalID: customer.ID,
		Role:        entity.RoleCustomer,
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	f.refreshTokens.On("FindRefreshTokenByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.principals.On("FindByID", mock.Anything, entity.KindCustomer, customer.ID).Return(customer, nil)
	f.refreshTokens.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)
	f.refreshTokens.On("MarkRefreshTokenRevoked", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshSecret: "valid"})
	require.NoError(t, err)

	// The stub encodes the principal into the token; it must be the record's
	// principal, resolved from the store.
	assert.Contains(t, out.AccessToken, customer.ID.String())
	f.principals.AssertCalled(t, "FindByID", mock.Anything, entity.KindCustomer, customer.ID)
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	f := newAuthServiceFixture(0)

	f.refreshTokens.On("DeleteRefreshTokenByHash", mock.Anything, mock.Anything).
		Return(repository.ErrRefreshTokenNotFound)

	err := f.svc.Logout(context.Background(), &usecase.LogoutInput{RefreshSecret: "already-gone"})
	assert.NoError(t, err)

	err = f.svc.Logout(context.Background(), &usecase.LogoutInput{RefreshSecret: "already-gone"})
	assert.NoError(t, err)
}

func TestAuthService_Logout_DeletesByHash(t *testing.T) {
	f := newAuthServiceFixture(0)
	secret := "live-secret"

	f.refreshTokens.On("DeleteRefreshTokenByHash", mock.Anything, f.tokens.HashSecret(secret)).Return(nil)

	err := f.svc.Logout(context.Background(), &usecase.LogoutInput{RefreshSecret: secret})
	require.NoError(t, err)
	f.refreshTokens.AssertExpectations(t)
}

func TestAuthService_Logout_EmptySecretIsNoop(t *testing.T) {
	f := newAuthServiceFixture(0)

	err := f.svc.Logout(context.Background(), &usecase.LogoutInput{})
	assert.NoError(t, err)
	f.refreshTokens.AssertNotCalled(t, "DeleteRefreshTokenByHash", mock.Anything, mock.Anything)
}

func TestAuthService_RequestPasswordReset_UnknownPrincipalIsUniform(t *testing.T) {
	f := newAuthServiceFixture(0)

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, "ghost@example.com").
		Return(nil, repository.ErrPrincipalNotFound)

	out, err := f.svc.RequestPasswordReset(context.Background(), &usecase.ResetRequestInput{
		Kind:       entity.KindCustomer,
		Identifier: "ghost@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Token)
	f.verifications.AssertNotCalled(t, "CreateVerificationToken", mock.Anything, mock.Anything)
}

func TestAuthService_RequestPasswordReset_IssuesToken(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, customer.Email).
		Return(customer, nil)
	f.verifications.On("DeleteVerificationTokensByPrincipalID", mock.Anything, customer.ID).Return(nil)
	f.verifications.On("CreateVerificationToken", mock.Anything, mock.AnythingOfType("*entity.VerificationToken")).Return(nil)

	out, err := f.svc.RequestPasswordReset(context.Background(), &usecase.ResetRequestInput{
		Kind:       entity.KindCustomer,
		Identifier: customer.Email,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)

	created := f.verifications.Calls[1].Arguments.Get(1).(*entity.VerificationToken)
	assert.Equal(t, f.tokens.HashSecret(out.Token), created.TokenHash)
	assert.Equal(t, entity.PurposePasswordReset, created.Purpose)
	assert.Equal(t, customer.ID, created.PrincipalID)
}

func TestAuthService_ConfirmPasswordReset_Success(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()
	rawToken := "reset-token-secret"

	record := &entity.VerificationToken{
		ID:          uuid.New(),
		PrincipalID: customer.ID,
		Role:        entity.RoleCustomer,
		TokenHash:   f.tokens.HashSecret(rawToken),
		Purpose:     entity.PurposePasswordReset,
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, customer.Email).
		Return(customer, nil)
	f.verifications.On("FindVerificationToken", mock.Anything, record.TokenHash, entity.PurposePasswordReset).
		Return(record, nil)
	f.principals.On("UpdatePasswordHash", mock.Anything, entity.KindCustomer, customer.ID, "hashed:NewPassword123!").
		Return(nil)
	f.verifications.On("DeleteVerificationToken", mock.Anything, record.ID).Return(nil)
	f.refreshTokens.On("DeleteRefreshTokensByPrincipalID", mock.Anything, customer.ID).Return(nil)

	err := f.svc.ConfirmPasswordReset(context.Background(), &usecase.ResetConfirmInput{
		Kind:        entity.KindCustomer,
		Identifier:  customer.Email,
		Token:       rawToken,
		NewPassword: "NewPassword123!",
	})
	require.NoError(t, err)

	f.principals.AssertCalled(t, "UpdatePasswordHash", mock.Anything, entity.KindCustomer, customer.ID, "hashed:NewPassword123!")
	f.verifications.AssertCalled(t, "DeleteVerificationToken", mock.Anything, record.ID)
	f.refreshTokens.AssertCalled(t, "DeleteRefreshTokensByPrincipalID", mock.Anything, customer.ID)
}

func TestAuthService_ConfirmPasswordReset_TokenForDifferentPrincipal(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()
	rawToken := "reset-token-secret"

	record := &entity.VerificationToken{
		ID:          uuid.New(),
		PrincipalID: uuid.New(), // someone else's token
		TokenHash:   f.tokens.HashSecret(rawToken),
		Purpose:     entity.PurposePasswordReset,
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, customer.Email).
		Return(customer, nil)
	f.verifications.On("FindVerificationToken", mock.Anything, record.TokenHash, entity.PurposePasswordReset).
		Return(record, nil)

	err := f.svc.ConfirmPasswordReset(context.Background(), &usecase.ResetConfirmInput{
		Kind:        entity.KindCustomer,
		Identifier:  customer.Email,
		Token:       rawToken,
		NewPassword: "NewPassword123!",
	})
	assert.ErrorIs(t, err, domainerrors.ErrVerificationTokenInvalid)
	f.principals.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_ConfirmPasswordReset_ExpiredToken(t *testing.T) {
	f := newAuthServiceFixture(0)
	customer := newTestCustomer()
	rawToken := "reset-token-secret"

	record := &entity.VerificationToken{
		ID:          uuid.New(),
		PrincipalID: customer.ID,
		TokenHash:   f.tokens.HashSecret(rawToken),
		Purpose:     entity.PurposePasswordReset,
		ExpiresAt:   time.Now().Add(-time.Minute),
	}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, customer.Email).
		Return(customer, nil)
	f.verifications.On("FindVerificationToken", mock.Anything, record.TokenHash, entity.PurposePasswordReset).
		Return(record, nil)

	err := f.svc.ConfirmPasswordReset(context.Background(), &usecase.ResetConfirmInput{
		Kind:        entity.KindCustomer,
		Identifier:  customer.Email,
		Token:       rawToken,
		NewPassword: "NewPassword123!",
	})
	assert.ErrorIs(t, err, domainerrors.ErrVerificationTokenInvalid)
}

func TestAuthService_ConfirmPasswordReset_WeakPassword(t *testing.T) {
	f := newAuthServiceFixture(0)
	f.hasher.strengthErr = errors.New("too short")
	customer := newTestCustomer()
	rawToken := "reset-token-secret"

	record := &entity.VerificationToken{
		ID:          uuid.New(),
		PrincipalID: customer.ID,
		TokenHash:   f.tokens.HashSecret(rawToken),
		Purpose:     entity.PurposePasswordReset,
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	f.principals.On("FindByIdentifier", mock.Anything, entity.KindCustomer, customer.Email).
		Return(customer, nil)
	f.verifications.On("FindVerificationToken", mock.Anything, record.TokenHash, entity.PurposePasswordReset).
		Return(record, nil)

	err := f.svc.ConfirmPasswordReset(context.Background(), &usecase.ResetConfirmInput{
		Kind:        entity.KindCustomer,
		Identifier:  customer.Email,
		Token:       rawToken,
		NewPassword: "weak",
	})
	assert.ErrorIs(t, err, domainerrors.ErrPasswordStrength)
	f.principals.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	// The token survives a rejected password so the user can retry.
	f.verifications.AssertNotCalled(t, "DeleteVerificationToken", mock.Anything, mock.Anything)
}
