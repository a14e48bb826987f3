package audit

import "time"

// Event is an immutable, append-only security log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; never block a login or refresh on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the account activity category.
	Type EventType `json:"type" db:"type"`

	// UserID is the affected account, empty when the actor never resolved
	// to one (e.g. a failed login on an unknown email).
	UserID string `json:"user_id,omitempty" db:"user_id"`
	// Email is recorded for failed logins, where no user id exists.
	Email string `json:"email,omitempty" db:"email"`

	// IPAddress should capture the original client IP when available.
	// Prefer X-Forwarded-For processing at the edge; store the resolved client IP here.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeRegistered     EventType = "account_registered"
	EventTypeLoginSucceeded EventType = "login_succeeded"
	EventTypeLoginFailed    EventType = "login_failed"
	EventTypeRefreshed      EventType = "session_refreshed"
	EventTypeLogout         EventType = "logout"
	EventTypeResetRequested EventType = "password_reset_requested"
	EventTypeResetCompleted EventType = "password_reset_completed"
)
