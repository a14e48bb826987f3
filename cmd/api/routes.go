package main

import (
	"net/http"

	"rezom-platform/internal/httpapi"
	"rezom-platform/internal/rbac"
	"rezom-platform/internal/session"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(
	r *gin.Engine,
	h httpapi.Handlers,
	requireToken gin.HandlerFunc,
	loginLimiter *httpapi.LoginLimiter,
	sessions session.Store,
) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	httpapi.RegisterAuthRoutes(r, h, requireToken, loginLimiter)

	// ADMIN routes
	// Role-gated, not merely token-gated: USER tokens get 403 here.
	admin := r.Group("/admin")
	admin.Use(requireToken)
	admin.Use(rbac.RequireAdmin())
	{
		admin.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Housekeeping: drop refresh sessions past their expiry.
		admin.POST("/sessions/purge-expired", func(c *gin.Context) {
			if err := sessions.DeleteExpired(c.Request.Context()); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{"message": "purge failed", "statusCode": http.StatusInternalServerError},
				})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
}
