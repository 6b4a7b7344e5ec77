// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"workshop/internal/domain/entity"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/domain/repository"
	"workshop/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// principalRepository implements the domain's PrincipalRepository over the
// four variant tables. Every lookup takes an explicit Kind; there is no
// fallthrough between tables.
type principalRepository struct {
	db *gorm.DB
}

// NewPrincipalRepository is the constructor for principalRepository.
func NewPrincipalRepository(db *gorm.DB) repository.PrincipalRepository {
	return &principalRepository{db: db}
}

// FindByIdentifier resolves a principal by its unique login field.
func (repo *principalRepository) FindByIdentifier(ctx context.Context, kind entity.Kind, identifier string) (entity.Principal, error) {
	switch kind {
	case entity.KindAdmin:
		var m model.AdminModel
		if err := repo.db.WithContext(ctx).Where("username = ?", identifier).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toAdminDomain(&m), nil
	case entity.KindShop:
		var m model.ShopModel
		if err := repo.db.WithContext(ctx).Where("username = ?", identifier).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toShopDomain(&m), nil
	case entity.KindCustomer:
		var m model.CustomerModel
		if err := repo.db.WithContext(ctx).Where("email = ?", identifier).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toCustomerDomain(&m), nil
	case entity.KindTech:
		var m model.TechnicianModel
		if err := repo.db.WithContext(ctx).Where("email = ?", identifier).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toTechnicianDomain(&m), nil
	default:
		return nil, errors.Errorf("unknown principal kind: %s", kind)
	}
}

// FindByID resolves a principal by primary key.
func (repo *principalRepository) FindByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (entity.Principal, error) {
	switch kind {
	case entity.KindAdmin:
		var m model.AdminModel
		if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toAdminDomain(&m), nil
	case entity.KindShop:
		var m model.ShopModel
		if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toShopDomain(&m), nil
	case entity.KindCustomer:
		var m model.CustomerModel
		if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toCustomerDomain(&m), nil
	case entity.KindTech:
		var m model.TechnicianModel
		if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
			return nil, mapLookupError(err)
		}

		return toTechnicianDomain(&m), nil
	default:
		return nil, errors.Errorf("unknown principal kind: %s", kind)
	}
}

// UpdatePasswordHash replaces the stored credential hash.
func (repo *principalRepository) UpdatePasswordHash(ctx context.Context, kind entity.Kind, id uuid.UUID, passwordHash string) error {
	var tx *gorm.DB
	switch kind {
	case entity.KindAdmin:
		tx = repo.db.WithContext(ctx).Model(&model.AdminModel{}).Where("id = ?", id).Update("password_hash", passwordHash)
	case entity.KindShop:
		tx = repo.db.WithContext(ctx).Model(&model.ShopModel{}).Where("id = ?", id).Update("password_hash", passwordHash)
	case entity.KindCustomer:
		tx = repo.db.WithContext(ctx).Model(&model.CustomerModel{}).Where("id = ?", id).Update("password_hash", passwordHash)
	case entity.KindTech:
		tx = repo.db.WithContext(ctx).Model(&model.TechnicianModel{}).Where("id = ?", id).Update("password_hash", passwordHash)
	default:
		return errors.Errorf("unknown principal kind: %s", kind)
	}

	if tx.Error != nil {
		if isNotNullConstraintViolation(tx.Error) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing credential hash")
		}

		return domainerrors.NewDatabaseExecuteError(tx.Error, "failed to update password hash")
	}
	if tx.RowsAffected == 0 {
		return repository.ErrPrincipalNotFound
	}

	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrPrincipalNotFound
	}

	return errors.WithStack(err)
}

// --- Mapper Functions ---

func toAdminDomain(data *model.AdminModel) *entity.Admin {
	return &entity.Admin{
		ID:           data.ID,
		Username:     data.Username,
		PasswordHash: data.PasswordHash,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func toShopDomain(data *model.ShopModel) *entity.Shop {
	return &entity.Shop{
		ID:           data.ID,
		Username:     data.Username,
		Name:         data.Name,
		PasswordHash: data.PasswordHash,
		Status:       entity.ShopStatus(data.Status),
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func toCustomerDomain(data *model.CustomerModel) *entity.Customer {
	return &entity.Customer{
		ID:           data.ID,
		Email:        data.Email,
		Name:         data.Name,
		PasswordHash: data.PasswordHash,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func toTechnicianDomain(data *model.TechnicianModel) *entity.Technician {
	return &entity.Technician{
		ID:           data.ID,
		Email:        data.Email,
		Name:         data.Name,
		PasswordHash: data.PasswordHash,
		Role:         entity.Role(data.Role),
		ShopID:       data.ShopID,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
