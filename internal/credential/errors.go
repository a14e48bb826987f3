package credential

import "errors"

// Error taxonomy for the credential/session service. Handlers map these to
// HTTP statuses; nothing else about a failure leaks to the client.
var (
	// ErrInvalidCredentials is deliberately uniform: it never reveals whether
	// the email exists or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned by Register when the email is in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUnauthenticated covers missing/expired/malformed access tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionInvalid covers absent, expired, revoked, and replayed
	// refresh sessions. Terminal for the refresh attempt.
	ErrSessionInvalid = errors.New("refresh session invalid")

	// ErrCsrfMismatch is returned when the CSRF header does not byte-equal
	// the CSRF value bound to the session. Terminal for the refresh attempt.
	ErrCsrfMismatch = errors.New("csrf token mismatch")

	// ErrBadRequest covers input validation failures.
	ErrBadRequest = errors.New("bad request")

	// ErrResetTokenInvalid covers unknown, expired, or already-used
	// password reset tokens.
	ErrResetTokenInvalid = errors.New("reset token invalid")
)
