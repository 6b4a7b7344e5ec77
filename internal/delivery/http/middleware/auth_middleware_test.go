package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	deliverycontext "workshop/internal/delivery/context"
	"workshop/internal/domain/entity"
	"workshop/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTokenService verifies exactly one known token.
type stubTokenService struct {
	validToken string
	claims     *service.AccessClaims
}

func (s *stubTokenService) IssueAccessToken(ref entity.PrincipalRef) (string, error) {
	return s.validToken, nil
}

func (s *stubTokenService) VerifyAccessToken(token string) (*service.AccessClaims, error) {
	if token == s.validToken {
		return s.claims, nil
	}

	return nil, errors.New("invalid or expired token")
}

func (s *stubTokenService) NewOpaqueSecret() (string, error) { return "secret", nil }

func (s *stubTokenService) HashSecret(secret string) string { return "hash:" + secret }

func (s *stubTokenService) RefreshTokenDuration() time.Duration { return time.Hour }

func newAuthTestContext(t *testing.T, authorization string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec), rec
}

func validClaims(role entity.Role) *service.AccessClaims {
	return &service.AccessClaims{
		PrincipalID: uuid.New(),
		Role:        role,
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Minute),
	}
}

func TestAuthMiddleware_ValidTokenSetsClaims(t *testing.T) {
	claims := validClaims(entity.RoleAdmin)
	m := NewAuthMiddleware(&stubTokenService{validToken: "good-token", claims: claims})

	c, rec := newAuthTestContext(t, "Bearer good-token")

	var seen *service.AccessClaims
	err := m.Authenticate(func(c echo.Context) error {
		seen = deliverycontext.GetClaims(c)

		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, claims.PrincipalID, seen.PrincipalID)
}

func TestAuthMiddleware_RejectsUniformly(t *testing.T) {
	m := NewAuthMiddleware(&stubTokenService{validToken: "good-token", claims: validClaims(entity.RoleAdmin)})

	cases := []struct {
		name          string
		authorization string
	}{
		{name: "missing header", authorization: ""},
		{name: "not bearer", authorization: "Basic dXNlcjpwYXNz"},
		{name: "unknown token", authorization: "Bearer forged-token"},
	}

	var bodies []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newAuthTestContext(t, tc.authorization)

			err := m.Authenticate(func(c echo.Context) error {
				t.Fatal("next should not run")

				return nil
			})(c)
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			bodies = append(bodies, rec.Body.String())
		})
	}

	// Every rejection reads the same; the response never says why.
	for _, body := range bodies {
		assert.Equal(t, bodies[0], body)
	}
}

func TestAuthMiddleware_RequireElevated(t *testing.T) {
	cases := []struct {
		role     entity.Role
		expected int
	}{
		{role: entity.RoleAdmin, expected: http.StatusOK},
		{role: entity.RoleShop, expected: http.StatusOK},
		{role: entity.RoleManager, expected: http.StatusOK},
		{role: entity.RoleCustomer, expected: http.StatusForbidden},
		{role: entity.RoleTech, expected: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.role.String(), func(t *testing.T) {
			m := NewAuthMiddleware(&stubTokenService{})
			c, rec := newAuthTestContext(t, "")
			deliverycontext.SetClaims(c, validClaims(tc.role))

			err := m.RequireElevated(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
			require.NoError(t, err)

			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestAuthMiddleware_RequireElevatedWithoutClaims(t *testing.T) {
	m := NewAuthMiddleware(&stubTokenService{})
	c, rec := newAuthTestContext(t, "")

	err := m.RequireElevated(func(c echo.Context) error {
		t.Fatal("next should not run")

		return nil
	})(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
