// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"workshop/config"
	deliverycontext "workshop/internal/delivery/context"
	"workshop/internal/delivery/http/response"
	"workshop/internal/domain/entity"
	domainerrors "workshop/internal/domain/errors"
	"workshop/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	uc      usecase.AuthUsecase
	cookies *cookieWriter
	logger  *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:      uc,
		cookies: newCookieWriter(cfg),
		logger:  logger,
	}
}

// log returns a request-scoped logger if available.
func (h *AuthHandler) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// principalPayload is the public projection of an authenticated principal.
type principalPayload struct {
	ID     uuid.UUID  `json:"id"`
	Role   string     `json:"role"`
	ShopID *uuid.UUID `json:"shopId,omitempty"`
}

type loginResponse struct {
	AccessToken string           `json:"accessToken"`
	Principal   principalPayload `json:"principal"`
}

func toPrincipalPayload(ref entity.PrincipalRef) principalPayload {
	return principalPayload{ID: ref.ID, Role: ref.Role.String(), ShopID: ref.ShopID}
}

// Login handles POST /login/:role. The path parameter selects the principal
// table; nothing is inferred from the identifier shape.
func (h *AuthHandler) Login(c echo.Context) error {
	kind := entity.Kind(c.Param("role"))
	if !kind.IsValid() {
		return response.BadRequest(c, "VALIDATION_FAILED", "unknown login role")
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Kind:       kind,
		Identifier: req.Identifier,
		Password:   req.Password,
		ClientIP:   c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	csrfToken, err := newCsrfToken()
	if err != nil {
		return errors.WithStack(err)
	}

	// The refresh secret travels only in the HttpOnly cookie.
	h.cookies.setRefreshCookie(c, output.RefreshSecret)
	h.cookies.setCsrfCookie(c, csrfToken)

	return response.Success(c, http.StatusOK, loginResponse{
		AccessToken: output.AccessToken,
		Principal:   toPrincipalPayload(output.Principal),
	}, "Login successful")
}

// Refresh handles POST /refresh: redeems the cookie secret and rotates it.
func (h *AuthHandler) Refresh(c echo.Context) error {
	output, err := h.uc.Refresh(c.Request().Context(), &usecase.RefreshInput{
		RefreshSecret: refreshSecretFromCookie(c),
		ClientIP:      c.RealIP(),
		UserAgent:     c.Request().UserAgent(),
	})
	if err != nil {
		// A dead session cookie is useless to the client; take it away.
		if errors.Is(err, domainerrors.ErrRefreshInvalid) {
			h.cookies.clearAuthCookies(c)
		}

		return errors.WithStack(err)
	}

	h.cookies.setRefreshCookie(c, output.RefreshSecret)

	return response.Success(c, http.StatusOK, loginResponse{
		AccessToken: output.AccessToken,
		Principal:   toPrincipalPayload(output.Principal),
	}, "Token refreshed successfully")
}

// Logout handles POST /logout. Repeating a logout returns the same 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.uc.Logout(c.Request().Context(), &usecase.LogoutInput{
		RefreshSecret: refreshSecretFromCookie(c),
	}); err != nil {
		return errors.WithStack(err)
	}

	h.cookies.clearAuthCookies(c)

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"}, "Logout successful")
}

// Csrf handles GET /csrf: mints a token and sets the readable cookie.
func (h *AuthHandler) Csrf(c echo.Context) error {
	token, err := newCsrfToken()
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.setCsrfCookie(c, token)

	return response.Success(c, http.StatusOK, map[string]string{"csrfToken": token}, "")
}

type resetRequestRequest struct {
	Role       string `json:"role" validate:"required"`
	Identifier string `json:"identifier" validate:"required"`
}

// RequestPasswordReset handles POST /reset/request. The response never says
// whether the identifier exists.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset request input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.RequestPasswordReset(c.Request().Context(), &usecase.ResetRequestInput{
		Kind:       entity.Kind(req.Role),
		Identifier: req.Identifier,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Token delivery is out of band. Debug logging is the only place the raw
	// token surfaces, and only in development setups.
	if output.Token != "" {
		h.log(c).Debug("Password reset token issued", slog.String("token", output.Token))
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"message": "If the account exists, a reset token has been issued",
	}, "")
}

type resetConfirmRequest struct {
	Role       string `json:"role" validate:"required"`
	Identifier string `json:"identifier" validate:"required"`
	Token      string `json:"token" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ConfirmPasswordReset handles POST /reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset confirmation input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.ConfirmPasswordReset(c.Request().Context(), &usecase.ResetConfirmInput{
		Kind:        entity.Kind(req.Role),
		Identifier:  req.Identifier,
		Token:       req.Token,
		NewPassword: req.Password,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password has been reset"}, "")
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
