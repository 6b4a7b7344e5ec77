// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"workshop/internal/delivery/http/middleware"
	"workshop/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	AuthMiddleware *middleware.AuthMiddleware
	CsrfMiddleware *middleware.CsrfMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	sessionHandler *handler.SessionHandler
	authMiddleware *middleware.AuthMiddleware
	csrfMiddleware *middleware.CsrfMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		sessionHandler: params.SessionHandler,
		authMiddleware: params.AuthMiddleware,
		csrfMiddleware: params.CsrfMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Anonymous auth surface. Login is never CSRF-gated; the attacker gains
	// nothing by logging the victim into the attacker's account here.
	e.POST("/login/:role", r.authHandler.Login)
	e.POST("/refresh", r.authHandler.Refresh)
	e.POST("/logout", r.authHandler.Logout, r.csrfMiddleware.Validate)
	e.GET("/csrf", r.authHandler.Csrf)
	e.POST("/reset/request", r.authHandler.RequestPasswordReset)
	e.POST("/reset/confirm", r.authHandler.ConfirmPasswordReset)

	// Session management, restricted to elevated roles.
	sessionGroup := e.Group("/sessions")
	sessionGroup.Use(r.authMiddleware.Authenticate)
	sessionGroup.Use(r.authMiddleware.RequireElevated)
	{
		sessionGroup.GET("", r.sessionHandler.ListSessions)
		sessionGroup.DELETE("", r.sessionHandler.RevokeSessions, r.csrfMiddleware.Validate)
	}
}
