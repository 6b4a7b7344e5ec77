package context

import (
	"workshop/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// KeyClaims is the key for storing verified access-token claims in context.
const KeyClaims ContextKey = "auth_claims"

// SetClaims stores verified access-token claims in echo.Context.
func SetClaims(c echo.Context, claims *service.AccessClaims) {
	c.Set(string(KeyClaims), claims)
}

// GetClaims extracts verified access-token claims from echo.Context.
// Returns nil when the request carries no authenticated principal.
func GetClaims(c echo.Context) *service.AccessClaims {
	if claims, ok := c.Get(string(KeyClaims)).(*service.AccessClaims); ok {
		return claims
	}

	return nil
}
