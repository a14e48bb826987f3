package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rezom-platform/pkg/logger"
	"rezom-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles login attempts per email using a redis fixed window.
// A nil limiter disables throttling (tests, local dev without redis).
type LoginLimiter struct {
	RDB    *redis.Client
	Limit  int
	Window time.Duration
}

type emailBody struct {
	Email string `json:"email"`
}

// Middleware peeks at the request body for the email and counts the attempt.
// Redis being down must not lock everyone out: errors fail open with a log line.
func (l *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.RDB == nil {
			c.Next()
			return
		}

		var body emailBody
		if err := c.ShouldBindBodyWithJSON(&body); err != nil || body.Email == "" {
			// Malformed body is rejected by the handler; nothing to count.
			c.Next()
			return
		}

		key := "login_attempts:" + strings.ToLower(strings.TrimSpace(body.Email))
		ok, err := utils.AllowAttempt(c.Request.Context(), l.RDB, key, l.Limit, l.Window)
		if err != nil {
			logger.FromGin(c).Warn("login limiter unavailable", "err", err)
			c.Next()
			return
		}
		if !ok {
			abortError(c, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
		c.Next()
	}
}
