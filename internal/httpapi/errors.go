package httpapi

import (
	"errors"
	"net/http"

	"rezom-platform/internal/credential"

	"github.com/gin-gonic/gin"
)

// Every endpoint answers failures with the same envelope:
// {"error":{"message":"...","statusCode":...}}.
// Clients also accept a bare {"message":...}; the envelope is what we emit.

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": msg, "statusCode": status},
	})
}

// abortServiceError maps the credential error taxonomy onto HTTP statuses.
// Anything unmapped is a 500 with a generic message; internals never leak.
func abortServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, credential.ErrBadRequest):
		abortError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, credential.ErrResetTokenInvalid):
		abortError(c, http.StatusBadRequest, "reset token is invalid or expired")
	case errors.Is(err, credential.ErrInvalidCredentials):
		abortError(c, http.StatusUnauthorized, credential.ErrInvalidCredentials.Error())
	case errors.Is(err, credential.ErrUnauthenticated):
		abortError(c, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, credential.ErrSessionInvalid):
		abortError(c, http.StatusUnauthorized, "session is invalid or expired")
	case errors.Is(err, credential.ErrCsrfMismatch):
		abortError(c, http.StatusUnauthorized, "csrf token mismatch")
	case errors.Is(err, credential.ErrEmailTaken):
		abortError(c, http.StatusConflict, credential.ErrEmailTaken.Error())
	default:
		c.Error(err) // surfaces in the request log
		abortError(c, http.StatusInternalServerError, "internal error")
	}
}
