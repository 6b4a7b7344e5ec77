package middleware

import (
	"crypto/subtle"

	"workshop/internal/delivery/http/response"

	"github.com/labstack/echo/v4"
)

const (
	// CsrfCookieName is the non-HttpOnly cookie carrying the CSRF token.
	CsrfCookieName = "csrf_token"
	// CsrfHeaderName is the request header that must echo the cookie value.
	CsrfHeaderName = "X-CSRF-Token"
)

// CsrfMiddleware implements stateless double-submit CSRF validation for
// cookie-authenticated state changes. Requests carrying a bearer token are
// exempt: a cross-site attacker cannot set the Authorization header.
type CsrfMiddleware struct{}

// NewCsrfMiddleware is the constructor for CsrfMiddleware.
func NewCsrfMiddleware() *CsrfMiddleware {
	return &CsrfMiddleware{}
}

// Validate rejects the request unless header and cookie carry the same
// non-empty token. Comparison is constant time.
func (m *CsrfMiddleware) Validate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if BearerToken(c) != "" {
			return next(c)
		}

		header := c.Request().Header.Get(CsrfHeaderName)
		cookie, err := c.Cookie(CsrfCookieName)
		if err != nil || header == "" || cookie.Value == "" {
			return response.Forbidden(c, "CSRF_FAILURE", "CSRF validation failed")
		}

		if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
			return response.Forbidden(c, "CSRF_FAILURE", "CSRF validation failed")
		}

		return next(c)
	}
}
