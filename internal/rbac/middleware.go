package rbac

import (
	"net/http"

	"rezom-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the caller has any of the provided roles.
// Admin routes must chain this after auth.RequireAccessToken: token presence
// alone never grants access to role-gated endpoints.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "role required", "statusCode": http.StatusUnauthorized},
			})
			return
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "forbidden", "statusCode": http.StatusForbidden},
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin is shorthand for the admin-panel route group.
func RequireAdmin() gin.HandlerFunc {
	return RequireAnyRole(RoleAdmin)
}
