package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session matches the presented token.
	// Expired, revoked, and rotated-out sessions all surface as not found so
	// callers cannot distinguish a replayed cookie from a bogus one.
	ErrNotFound = errors.New("refresh session not found")
)

// RefreshSession is the server-tracked half of the refresh credential.
// Only the SHA-256 hash of the opaque cookie value is stored; the CSRF token
// is stored in clear because it is deliberately client-readable.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CSRFToken string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewToken returns a 256-bit opaque credential, hex-encoded.
// Used for both refresh cookie values and CSRF tokens.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken derives the storage key for an opaque token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
