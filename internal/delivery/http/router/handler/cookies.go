package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"workshop/config"
	"workshop/internal/delivery/http/middleware"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// RefreshCookieName is the HttpOnly cookie carrying the opaque refresh secret.
const RefreshCookieName = "refresh_token"

// cookieWriter centralizes the attributes shared by the auth cookies.
type cookieWriter struct {
	domain     string
	secure     bool
	refreshTTL time.Duration
}

func newCookieWriter(cfg *config.Config) *cookieWriter {
	w := &cookieWriter{refreshTTL: 30 * 24 * time.Hour}
	if cfg.Cookie != nil {
		w.domain = cfg.Cookie.Domain
		w.secure = cfg.Cookie.Secure
	}
	if cfg.Auth != nil && cfg.Auth.RefreshTTL > 0 {
		w.refreshTTL = cfg.Auth.RefreshTTL
	}

	return w
}

// setRefreshCookie stores the raw refresh secret where only the browser can
// read it back.
func (w *cookieWriter) setRefreshCookie(c echo.Context, secret string) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    secret,
		Path:     "/",
		Domain:   w.domain,
		MaxAge:   int(w.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setCsrfCookie stores the CSRF token readable by frontend code, which must
// echo it in the X-CSRF-Token header.
func (w *cookieWriter) setCsrfCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CsrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   w.domain,
		MaxAge:   int(w.refreshTTL.Seconds()),
		HttpOnly: false,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires both auth cookies.
func (w *cookieWriter) clearAuthCookies(c echo.Context) {
	for _, name := range []string{RefreshCookieName, middleware.CsrfCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   w.domain,
			MaxAge:   -1,
			HttpOnly: name == RefreshCookieName,
			Secure:   w.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// refreshSecretFromCookie reads the presented refresh secret, empty when absent.
func refreshSecretFromCookie(c echo.Context) string {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// newCsrfToken mints a fresh 32-byte URL-safe CSRF token.
func newCsrfToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate CSRF token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
