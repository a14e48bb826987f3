package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
// Access tokens are the sole JWT credential: refresh sessions are opaque
// server-tracked values delivered via HttpOnly cookie and never signed.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
