package auth

import (
	"testing"

	"workshop/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHasherConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{BcryptCost: 10},
		PasswordStrength: &config.PasswordStrengthConfig{
			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumbers:   true,
		},
	}
}

func TestBcryptHasher_HashAndCheck(t *testing.T) {
	hasher := NewBcryptHasher(newHasherConfig())

	password := "StrongPass123"
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, hasher.Check(password, hash))
	assert.False(t, hasher.Check("WrongPass123", hash))
	assert.False(t, hasher.Check("", hash))
	assert.False(t, hasher.Check(password, ""))
	assert.False(t, hasher.Check(password, "invalid_hash"))
}

func TestBcryptHasher_HashesAreSalted(t *testing.T) {
	hasher := NewBcryptHasher(newHasherConfig())

	first, err := hasher.Hash("StrongPass123")
	require.NoError(t, err)
	second, err := hasher.Hash("StrongPass123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Check("StrongPass123", first))
	assert.True(t, hasher.Check("StrongPass123", second))
}

func TestBcryptHasher_ValidatePasswordStrength(t *testing.T) {
	hasher := NewBcryptHasher(newHasherConfig())

	valid := []string{"StrongPass123", "MySecurePass1", "ComplexSecret9"}
	for _, password := range valid {
		assert.NoError(t, hasher.ValidatePasswordStrength(password), "expected %q to pass", password)
	}

	weak := []string{
		"short1A",      // too short
		"password123A", // forbidden word
		"alllower123",  // no uppercase
		"ALLUPPER123",  // no lowercase
		"NoNumbersHere",
	}
	for _, password := range weak {
		assert.Error(t, hasher.ValidatePasswordStrength(password), "expected %q to fail", password)
	}
}
