// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"strings"
	"unicode"

	"workshop/config"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/domain/service"

	"golang.org/x/crypto/bcrypt"
)

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost     int
	strength *config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg != nil && cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		cost = cfg.Auth.BcryptCost
	}

	var strength *config.PasswordStrengthConfig
	if cfg != nil {
		strength = cfg.PasswordStrength
	}

	return &bcryptHasher{cost: cost, strength: strength}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)

	return string(bytes), err
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength applies the configured password policy.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	policy := h.strength
	if policy == nil {
		policy = &config.PasswordStrengthConfig{MinLength: 8, MaxLength: 72}
	}

	if len(password) < policy.MinLength {
		return domainerrors.ErrPasswordStrength.WrapMessage("password too short")
	}
	// bcrypt truncates input beyond 72 bytes.
	maxLength := policy.MaxLength
	if maxLength <= 0 || maxLength > 72 {
		maxLength = 72
	}
	if len(password) > maxLength {
		return domainerrors.ErrPasswordStrength.WrapMessage("password too long")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		return domainerrors.ErrPasswordStrength.WrapMessage("missing uppercase letter")
	}
	if policy.RequireLowercase && !hasLower {
		return domainerrors.ErrPasswordStrength.WrapMessage("missing lowercase letter")
	}
	if policy.RequireNumbers && !hasNumber {
		return domainerrors.ErrPasswordStrength.WrapMessage("missing digit")
	}
	if policy.RequireSpecial && !hasSpecial {
		return domainerrors.ErrPasswordStrength.WrapMessage("missing special character")
	}

	lowered := strings.ToLower(password)
	for _, banned := range []string{"password", "12345678", "qwerty"} {
		if strings.Contains(lowered, banned) {
			return domainerrors.ErrPasswordStrength.WrapMessage("password contains a forbidden pattern")
		}
	}

	return nil
}
