package postgres

import (
	"context"
	"time"

	"workshop/internal/domain/entity"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/domain/repository"
	"workshop/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// verificationTokenRepository implements the domain.VerificationTokenRepository interface.
type verificationTokenRepository struct {
	db *gorm.DB
}

// NewVerificationTokenRepository is the constructor for verificationTokenRepository.
func NewVerificationTokenRepository(db *gorm.DB) repository.VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

// CreateVerificationToken persists a new single-use token record.
func (repo *verificationTokenRepository) CreateVerificationToken(ctx context.Context, token *entity.VerificationToken) error {
	tokenM := fromVerificationTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("verification token already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrSessionStoreFailed.WrapMessage("missing required token information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create verification token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindVerificationToken retrieves a record by its hash and purpose.
func (repo *verificationTokenRepository) FindVerificationToken(ctx context.Context, tokenHash, purpose string) (*entity.VerificationToken, error) {
	var tokenM model.VerificationTokenModel
	err := repo.db.WithContext(ctx).
		Where("token_hash = ? AND purpose = ?", tokenHash, purpose).
		First(&tokenM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrVerificationTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toVerificationTokenDomain(&tokenM), nil
}

// DeleteVerificationToken removes a record by ID.
func (repo *verificationTokenRepository) DeleteVerificationToken(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.VerificationTokenModel{})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrVerificationTokenNotFound
	}

	return nil
}

// DeleteVerificationTokensByPrincipalID removes all outstanding tokens for a principal.
func (repo *verificationTokenRepository) DeleteVerificationTokensByPrincipalID(ctx context.Context, principalID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Delete(&model.VerificationTokenModel{}).Error; err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteExpiredVerificationTokens sweeps expired rows.
func (repo *verificationTokenRepository) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.VerificationTokenModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

// --- Mapper Functions ---

func toVerificationTokenDomain(data *model.VerificationTokenModel) *entity.VerificationToken {
	if data == nil {
		return nil
	}

	return &entity.VerificationToken{
		ID:          data.ID,
		PrincipalID: data.PrincipalID,
		Role:        entity.Role(data.Role),
		TokenHash:   data.TokenHash,
		Purpose:     data.Purpose,
		ExpiresAt:   data.ExpiresAt,
		CreatedAt:   data.CreatedAt,
	}
}

func fromVerificationTokenDomain(data *entity.VerificationToken) *model.VerificationTokenModel {
	if data == nil {
		return nil
	}

	return &model.VerificationTokenModel{
		ID:          data.ID,
		PrincipalID: data.PrincipalID,
		Role:        data.Role.String(),
		TokenHash:   data.TokenHash,
		Purpose:     data.Purpose,
		ExpiresAt:   data.ExpiresAt,
		CreatedAt:   data.CreatedAt,
	}
}
