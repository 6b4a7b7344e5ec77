package impl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"workshop/internal/domain/entity"
	"workshop/internal/domain/repository"
	"workshop/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// fakeTxManager runs the transaction function directly against a fixed
// factory. Rollback semantics are not simulated; the tests assert on the
// repository calls instead.
type fakeTxManager struct {
	factory repository.RepositoryFactory
}

func (m *fakeTxManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(m.factory)
}

type fakeRepoFactory struct {
	principals    repository.PrincipalRepository
	refreshTokens repository.RefreshTokenRepository
	verifications repository.VerificationTokenRepository
}

func (f *fakeRepoFactory) PrincipalRepo() repository.PrincipalRepository { return f.principals }
func (f *fakeRepoFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return f.refreshTokens
}
func (f *fakeRepoFactory) VerificationTokenRepo() repository.VerificationTokenRepository {
	return f.verifications
}

// --- Repository mocks ---

type mockPrincipalRepo struct {
	mock.Mock
}

func (m *mockPrincipalRepo) FindByIdentifier(ctx context.Context, kind entity.Kind, identifier string) (entity.Principal, error) {
	args := m.Called(ctx, kind, identifier)
	if p := args.Get(0); p != nil {
		return p.(entity.Principal), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockPrincipalRepo) FindByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (entity.Principal, error) {
	args := m.Called(ctx, kind, id)
	if p := args.Get(0); p != nil {
		return p.(entity.Principal), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockPrincipalRepo) UpdatePasswordHash(ctx context.Context, kind entity.Kind, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, kind, id, passwordHash)

	return args.Error(0)
}

type mockRefreshTokenRepo struct {
	mock.Mock
}

func (m *mockRefreshTokenRepo) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	args := m.Called(ctx, token)
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	return args.Error(0)
}

func (m *mockRefreshTokenRepo) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if t := args.Get(0); t != nil {
		return t.(*entity.RefreshToken), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockRefreshTokenRepo) FindRefreshTokenByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*entity.RefreshToken), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockRefreshTokenRepo) FindRefreshTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) ([]*entity.RefreshToken, error) {
	args := m.Called(ctx, principalID)
	if t := args.Get(0); t != nil {
		return t.([]*entity.RefreshToken), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockRefreshTokenRepo) MarkRefreshTokenRevoked(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error {
	args := m.Called(ctx, id, replacedBy)

	return args.Error(0)
}

func (m *mockRefreshTokenRepo) DeleteRefreshToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *mockRefreshTokenRepo) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)

	return args.Error(0)
}

func (m *mockRefreshTokenRepo) DeleteRefreshTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) error {
	args := m.Called(ctx, principalID)

	return args.Error(0)
}

func (m *mockRefreshTokenRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)

	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshTokenRepo) CountActiveSessionsByPrincipalID(ctx context.Context, principalID uuid.UUID) (int, error) {
	args := m.Called(ctx, principalID)

	return args.Int(0), args.Error(1)
}

type mockVerificationTokenRepo struct {
	mock.Mock
}

func (m *mockVerificationTokenRepo) CreateVerificationToken(ctx context.Context, token *entity.VerificationToken) error {
	args := m.Called(ctx, token)
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	return args.Error(0)
}

func (m *mockVerificationTokenRepo) FindVerificationToken(ctx context.Context, tokenHash, purpose string) (*entity.VerificationToken, error) {
	args := m.Called(ctx, tokenHash, purpose)
	if t := args.Get(0); t != nil {
		return t.(*entity.VerificationToken), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockVerificationTokenRepo) DeleteVerificationToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *mockVerificationTokenRepo) DeleteVerificationTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) error {
	args := m.Called(ctx, principalID)

	return args.Error(0)
}

func (m *mockVerificationTokenRepo) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)

	return args.Get(0).(int64), args.Error(1)
}

// --- Domain service stubs ---

// stubHasher is a transparent hasher so tests control matches directly.
type stubHasher struct {
	strengthErr error
}

func (s *stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (s *stubHasher) Check(password, hash string) bool { return hash == "hashed:"+password }

func (s *stubHasher) ValidatePasswordStrength(password string) error { return s.strengthErr }

// stubTokenService issues deterministic tokens and hex SHA-256 hashes like
// the production codec, so rotation assertions can follow the hashes.
type stubTokenService struct {
	issueErr error
	secrets  []string
	issued   int
}

func (s *stubTokenService) IssueAccessToken(ref entity.PrincipalRef) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}

	return "access:" + ref.ID.String() + ":" + ref.Role.String(), nil
}

func (s *stubTokenService) VerifyAccessToken(token string) (*service.AccessClaims, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubTokenService) NewOpaqueSecret() (string, error) {
	if s.issued < len(s.secrets) {
		secret := s.secrets[s.issued]
		s.issued++

		return secret, nil
	}
	s.issued++

	return fmt.Sprintf("secret-%d", s.issued), nil
}

func (s *stubTokenService) HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}

func (s *stubTokenService) RefreshTokenDuration() time.Duration { return 24 * time.Hour }

// stubLoginGate returns a fixed verdict.
type stubLoginGate struct {
	allow bool
	err   error
}

func (s *stubLoginGate) Allow(ctx context.Context, kind entity.Kind, identifier, clientIP string) (bool, error) {
	return s.allow, s.err
}
