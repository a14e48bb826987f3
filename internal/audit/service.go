package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs security-relevant account activity.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to end users.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// RecordLogin records the outcome of a login attempt. Failed attempts carry
// the presented email since no user resolved.
func (s *Service) RecordLogin(ctx context.Context, userID, email string, ok bool) error {
	if ok {
		return s.Append(ctx, Event{Type: EventTypeLoginSucceeded, UserID: userID})
	}
	return s.Append(ctx, Event{Type: EventTypeLoginFailed, Email: email, Message: "invalid credentials"})
}

func (s *Service) RecordRegistered(ctx context.Context, userID string) error {
	return s.Append(ctx, Event{Type: EventTypeRegistered, UserID: userID})
}

func (s *Service) RecordRefreshed(ctx context.Context, userID string) error {
	return s.Append(ctx, Event{Type: EventTypeRefreshed, UserID: userID})
}

func (s *Service) RecordLogout(ctx context.Context, userID string) error {
	return s.Append(ctx, Event{Type: EventTypeLogout, UserID: userID})
}

func (s *Service) RecordResetRequested(ctx context.Context, userID string) error {
	return s.Append(ctx, Event{Type: EventTypeResetRequested, UserID: userID})
}

func (s *Service) RecordResetCompleted(ctx context.Context, userID string) error {
	return s.Append(ctx, Event{Type: EventTypeResetCompleted, UserID: userID, Message: "all sessions revoked"})
}
