// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"workshop/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a principal to log in. Kind is
// taken from the URL path, never guessed from the identifier shape.
type LoginInput struct {
	Kind       entity.Kind
	Identifier string
	Password   string
	ClientIP   string
	UserAgent  string
}

// RefreshInput carries the opaque refresh secret presented by the client.
type RefreshInput struct {
	RefreshSecret string
	ClientIP      string
	UserAgent     string
}

// LogoutInput carries the refresh secret of the session being ended.
type LogoutInput struct {
	RefreshSecret string
}

// ResetRequestInput identifies the principal asking for a password reset.
type ResetRequestInput struct {
	Kind       entity.Kind
	Identifier string
}

// ResetConfirmInput redeems a reset token against an explicit principal.
type ResetConfirmInput struct {
	Kind        entity.Kind
	Identifier  string
	Token       string
	NewPassword string
}

// --- Output DTOs ---

// LoginOutput returns the minted tokens after a successful login. The
// refresh secret goes into an HttpOnly cookie and is never echoed in the
// response body.
type LoginOutput struct {
	AccessToken   string
	RefreshSecret string
	SessionID     string
	Principal     entity.PrincipalRef
}

// RefreshOutput returns the rotated token pair.
type RefreshOutput struct {
	AccessToken   string
	RefreshSecret string
	SessionID     string
	Principal     entity.PrincipalRef
}

// ResetRequestOutput carries the raw reset token. Delivery to the principal
// is out of scope here; the handler never includes it in the response.
type ResetRequestOutput struct {
	Token string
}

// AuthUsecase defines the interface for authentication operations.
// This is the contract that the delivery layer (HTTP handlers) depends on.
type AuthUsecase interface {
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	Refresh(ctx context.Context, input *RefreshInput) (*RefreshOutput, error)
	Logout(ctx context.Context, input *LogoutInput) error
	RequestPasswordReset(ctx context.Context, input *ResetRequestInput) (*ResetRequestOutput, error)
	ConfirmPasswordReset(ctx context.Context, input *ResetConfirmInput) error
}
