package httpapi

import (
	"rezom-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes wires the auth surface onto a router. Shared between
// cmd/api and handler tests so both exercise identical routing.
//
// /auth/refresh is guarded by the double-submit CSRF check inside the
// handler, never by the bearer middleware: an expired access token must not
// prevent a refresh.
func RegisterAuthRoutes(r gin.IRouter, h Handlers, requireToken gin.HandlerFunc, loginLimiter *LoginLimiter) {
	authGroup := r.Group("/auth", withClientIP())
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", loginLimiter.Middleware(), h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/reset-password", h.ResetPassword)

		authGroup.GET("/me", requireToken, h.Me)
	}
}

// withClientIP resolves the client IP once per request and threads it through
// the context for the audit trail.
func withClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
