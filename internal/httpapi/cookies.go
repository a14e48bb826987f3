package httpapi

import (
	"net/http"
	"time"

	"rezom-platform/internal/config"
	"rezom-platform/internal/credential"

	"github.com/gin-gonic/gin"
)

// The refresh cookie is scoped to /auth so the long-lived credential never
// rides along on content requests. The CSRF cookie must be readable by
// client script (double-submit), so HttpOnly stays off and the path is /.

func setAuthCookies(c *gin.Context, cfg config.CookieConfig, creds *credential.Credentials) {
	maxAge := int(time.Until(creds.SessionExpiresAt).Seconds())

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.RefreshName,
		Value:    creds.RefreshToken,
		Path:     "/auth",
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CSRFName,
		Value:    creds.CSRFToken,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookies(c *gin.Context, cfg config.CookieConfig) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.RefreshName,
		Value:    "",
		Path:     "/auth",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CSRFName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
