// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"workshop/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrPrincipalNotFound is returned when no principal matches the lookup.
var ErrPrincipalNotFound = errors.New("principal not found")

// PrincipalRepository resolves and mutates the four principal variants.
// Lookups are always scoped to an explicit Kind: there is no cross-table
// trial-and-error resolution.
type PrincipalRepository interface {
	// FindByIdentifier resolves a principal of the given kind by its unique
	// login field (username for admin/shop, email for customer/tech).
	FindByIdentifier(ctx context.Context, kind entity.Kind, identifier string) (entity.Principal, error)

	// FindByID resolves a principal of the given kind by primary key.
	FindByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (entity.Principal, error)

	// UpdatePasswordHash replaces the stored credential hash for the
	// principal. Used by the password-reset flow.
	UpdatePasswordHash(ctx context.Context, kind entity.Kind, id uuid.UUID, passwordHash string) error
}
