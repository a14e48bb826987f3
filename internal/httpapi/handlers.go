package httpapi

import (
	"net/http"

	"rezom-platform/internal/auth"
	"rezom-platform/internal/config"
	"rezom-platform/internal/credential"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Credentials *credential.Service
	Cookies     config.CookieConfig
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Register creates an account and signs the user in: access token in the
// body, refresh session + CSRF token as cookies.
func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	creds, err := h.Credentials.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	setAuthCookies(c, h.Cookies, creds)
	c.JSON(http.StatusCreated, gin.H{"user": creds.User, "accessToken": creds.AccessToken})
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	creds, err := h.Credentials.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// No cookies on failure, uniform message on bad credentials.
		abortServiceError(c, err)
		return
	}

	setAuthCookies(c, h.Cookies, creds)
	c.JSON(http.StatusOK, gin.H{"user": creds.User, "accessToken": creds.AccessToken})
}

// Refresh exchanges the refresh cookie + CSRF proof for a new access token
// and rotated cookies. The double-submit check happens here: the header must
// byte-equal the cookie before the service ever sees the request. This
// endpoint never triggers another refresh client-side; a 401 here is final.
func (h Handlers) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(h.Cookies.RefreshName)
	if err != nil {
		abortError(c, http.StatusUnauthorized, "session is invalid or expired")
		return
	}

	csrfCookie, err := c.Cookie(h.Cookies.CSRFName)
	csrfHeader := c.GetHeader(h.Cookies.CSRFName)
	if err != nil || csrfCookie == "" || csrfHeader == "" || csrfCookie != csrfHeader {
		abortError(c, http.StatusUnauthorized, "csrf token mismatch")
		return
	}

	creds, err := h.Credentials.Refresh(c.Request.Context(), refreshToken, csrfHeader)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	setAuthCookies(c, h.Cookies, creds)
	c.JSON(http.StatusOK, gin.H{"accessToken": creds.AccessToken})
}

// Me returns the authenticated principal. Requires auth.RequireAccessToken
// in the chain.
func (h Handlers) Me(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	user, err := h.Credentials.Me(c.Request.Context(), userID)
	if err != nil {
		abortServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout revokes the refresh session and clears both cookies. Idempotent:
// missing or already-revoked sessions still answer {ok:true}.
func (h Handlers) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(h.Cookies.RefreshName)
	if err == nil && refreshToken != "" {
		if err := h.Credentials.Logout(c.Request.Context(), refreshToken); err != nil {
			abortServiceError(c, err)
			return
		}
	}

	clearAuthCookies(c, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ForgotPassword always reports success; account existence is never revealed.
func (h Handlers) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.Credentials.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		abortServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if that email exists, a reset link has been sent"})
}

func (h Handlers) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.Credentials.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		abortServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password has been reset"})
}
