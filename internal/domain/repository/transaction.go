package repository

import "context"

// TransactionManager defines the interface for managing database transactions.
// This allows the use case layer to handle transactions without depending on a specific DB driver like GORM.
type TransactionManager interface {
	// Execute runs a function within a database transaction.
	// If the function returns an error, the transaction is rolled back. Otherwise, it's committed.
	// All repository operations within the function will use the same database transaction.
	Execute(ctx context.Context, fn func(repoFactory RepositoryFactory) error) error
}

// RepositoryFactory provides repository instances bound to a specific
// transaction, so multi-step operations stay atomic.
type RepositoryFactory interface {
	// PrincipalRepo returns a PrincipalRepository bound to the current transaction.
	PrincipalRepo() PrincipalRepository

	// RefreshTokenRepo returns a RefreshTokenRepository bound to the current transaction.
	RefreshTokenRepo() RefreshTokenRepository

	// VerificationTokenRepo returns a VerificationTokenRepository bound to the current transaction.
	VerificationTokenRepo() VerificationTokenRepository
}
