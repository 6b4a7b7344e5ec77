// Package entity contains the core business objects of the project.
package entity

import "slices"

// Role represents the authenticated capacity a principal acts in.
// It is embedded in access-token claims and drives authorization checks.
type Role string

const (
	// RoleAdmin indicates a platform administrator.
	RoleAdmin Role = "admin"
	// RoleShop indicates a shop (tenant) account.
	RoleShop Role = "shop"
	// RoleCustomer indicates an end customer.
	RoleCustomer Role = "customer"
	// RoleTech indicates a technician.
	RoleTech Role = "tech"
	// RoleManager indicates a technician with manager privileges.
	RoleManager Role = "manager"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleShop, RoleCustomer, RoleTech, RoleManager:
		return true
	default:
		return false
	}
}

// Elevated reports whether the role may use the session-management surface.
func (r Role) Elevated() bool {
	return slices.Contains([]Role{RoleAdmin, RoleShop, RoleManager}, r)
}

// Kind selects which principal table an operation resolves against.
// Manager is not a Kind: managers live in the technicians table.
type Kind string

const (
	// KindAdmin selects the admins table.
	KindAdmin Kind = "admin"
	// KindShop selects the shops table.
	KindShop Kind = "shop"
	// KindCustomer selects the customers table.
	KindCustomer Kind = "customer"
	// KindTech selects the technicians table.
	KindTech Kind = "tech"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is a valid value.
func (k Kind) IsValid() bool {
	switch k {
	case KindAdmin, KindShop, KindCustomer, KindTech:
		return true
	default:
		return false
	}
}

// KindOf maps a role back to the table its principal is stored in.
func KindOf(r Role) Kind {
	switch r {
	case RoleAdmin:
		return KindAdmin
	case RoleShop:
		return KindShop
	case RoleCustomer:
		return KindCustomer
	case RoleTech, RoleManager:
		return KindTech
	default:
		return Kind(r)
	}
}
