package middleware

import (
	"strings"

	deliverycontext "workshop/internal/delivery/context"
	"workshop/internal/delivery/http/response"
	"workshop/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware provides middleware for access-token authentication and
// role-based authorization.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// BearerToken extracts the bearer token from a request, if any.
func BearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return ""
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}

	return token
}

// Authenticate validates the bearer access token and stores the verified
// claims on the context. Every failure is the same 401.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := BearerToken(c)
		if token == "" {
			return response.Unauthorized(c, "TOKEN_INVALID", "invalid or expired token")
		}

		claims, err := m.tokenSvc.VerifyAccessToken(token)
		if err != nil {
			return response.Unauthorized(c, "TOKEN_INVALID", "invalid or expired token")
		}

		deliverycontext.SetClaims(c, claims)

		return next(c)
	}
}

// RequireElevated restricts a route to admin, shop and manager roles.
// It must be used AFTER Authenticate.
func (m *AuthMiddleware) RequireElevated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := deliverycontext.GetClaims(c)
		if claims == nil {
			return response.Unauthorized(c, "TOKEN_INVALID", "invalid or expired token")
		}

		if !claims.Role.Elevated() {
			return response.Forbidden(c, "FORBIDDEN", "access denied")
		}

		return next(c)
	}
}
