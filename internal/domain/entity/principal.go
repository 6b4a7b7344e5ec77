// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// ShopStatus gates whether a shop account may authenticate.
type ShopStatus string

const (
	// ShopStatusPending marks a shop awaiting approval; login is refused.
	ShopStatusPending ShopStatus = "pending"
	// ShopStatusApproved marks a shop cleared for login.
	ShopStatusApproved ShopStatus = "approved"
	// ShopStatusSuspended marks a shop whose access has been withdrawn.
	ShopStatusSuspended ShopStatus = "suspended"
)

// PrincipalRef is the shared projection of any principal variant. It is the
// only shape the token codec and the session layer ever see; variant-specific
// fields stay behind a discriminated match on the concrete type.
type PrincipalRef struct {
	ID     uuid.UUID
	Role   Role
	ShopID *uuid.UUID // Tenant scope, set only for technicians and managers.
}

// Principal is the tagged union over the four authenticable variants.
type Principal interface {
	// Ref returns the shared {id, role, tenant} projection.
	Ref() PrincipalRef
	// Identifier returns the variant's unique login field value.
	Identifier() string
	// CredentialHash returns the stored password hash. Empty means the
	// principal cannot authenticate (e.g. a shop pending provisioning).
	CredentialHash() string
}

// Admin is a platform administrator, identified by username.
type Admin struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref implements Principal.
func (a *Admin) Ref() PrincipalRef { return PrincipalRef{ID: a.ID, Role: RoleAdmin} }

// Identifier implements Principal.
func (a *Admin) Identifier() string { return a.Username }

// CredentialHash implements Principal.
func (a *Admin) CredentialHash() string { return a.PasswordHash }

// Shop is a tenant account, identified by username. PasswordHash is empty
// until provisioning completes, and Status gates login.
type Shop struct {
	ID           uuid.UUID
	Username     string
	Name         string
	PasswordHash string
	Status       ShopStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref implements Principal.
func (s *Shop) Ref() PrincipalRef { return PrincipalRef{ID: s.ID, Role: RoleShop} }

// Identifier implements Principal.
func (s *Shop) Identifier() string { return s.Username }

// CredentialHash implements Principal.
func (s *Shop) CredentialHash() string { return s.PasswordHash }

// Customer is an end customer, identified by email.
type Customer struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref implements Principal.
func (c *Customer) Ref() PrincipalRef { return PrincipalRef{ID: c.ID, Role: RoleCustomer} }

// Identifier implements Principal.
func (c *Customer) Identifier() string { return c.Email }

// CredentialHash implements Principal.
func (c *Customer) CredentialHash() string { return c.PasswordHash }

// Technician is a shop employee, identified by email. Role distinguishes
// plain technicians from managers; ShopID carries the tenant scope.
type Technician struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role // RoleTech or RoleManager
	ShopID       uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref implements Principal.
func (t *Technician) Ref() PrincipalRef {
	shopID := t.ShopID

	return PrincipalRef{ID: t.ID, Role: t.Role, ShopID: &shopID}
}

// Identifier implements Principal.
func (t *Technician) Identifier() string { return t.Email }

// CredentialHash implements Principal.
func (t *Technician) CredentialHash() string { return t.PasswordHash }
