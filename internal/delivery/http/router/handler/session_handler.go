package handler

import (
	"log/slog"
	"net/http"

	"workshop/config"
	deliverycontext "workshop/internal/delivery/context"
	"workshop/internal/delivery/http/response"
	"workshop/internal/domain/service"
	"workshop/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionHandler holds dependencies for session management handlers.
type SessionHandler struct {
	uc       usecase.SessionUsecase
	tokenSvc service.TokenService
	cookies  *cookieWriter
	logger   *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(uc usecase.SessionUsecase, tokenSvc service.TokenService, cfg *config.Config, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		uc:       uc,
		tokenSvc: tokenSvc,
		cookies:  newCookieWriter(cfg),
		logger:   logger,
	}
}

func (h *SessionHandler) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger)
}

// ListSessions handles GET /sessions: the caller's own active sessions,
// metadata only.
func (h *SessionHandler) ListSessions(c echo.Context) error {
	claims := deliverycontext.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "TOKEN_INVALID", "invalid or expired token")
	}

	// When the caller also holds the refresh cookie, mark that session as
	// current in the listing.
	currentHash := ""
	if secret := refreshSecretFromCookie(c); secret != "" {
		currentHash = h.tokenSvc.HashSecret(secret)
	}

	sessions, err := h.uc.GetActiveSessions(c.Request().Context(), claims.Ref(), currentHash)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]any{"sessions": sessions}, "")
}

type revokeSessionRequest struct {
	ID  string `json:"id"`
	All bool   `json:"all"`
}

// RevokeSessions handles DELETE /sessions: body {id} ends one owned session,
// body {all:true} ends every session of the caller.
func (h *SessionHandler) RevokeSessions(c echo.Context) error {
	claims := deliverycontext.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "TOKEN_INVALID", "invalid or expired token")
	}

	var req revokeSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid revoke input")
	}

	if req.All {
		if err := h.uc.RevokeAllSessions(c.Request().Context(), claims.Ref()); err != nil {
			return errors.WithStack(err)
		}

		// The caller just ended their own session too.
		h.cookies.clearAuthCookies(c)
		h.log(c).Info("Revoked all sessions", slog.String("principalID", claims.PrincipalID.String()))

		return response.Success(c, http.StatusOK, map[string]string{"message": "All sessions revoked"}, "")
	}

	sessionID, err := uuid.Parse(req.ID)
	if err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", "invalid session id")
	}

	if err := h.uc.RevokeSession(c.Request().Context(), claims.Ref(), sessionID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Session revoked"}, "")
}
