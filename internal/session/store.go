package session

import "context"

// Store persists refresh sessions.
//
// Rotate is the anti-replay primitive: it atomically removes the old session
// and installs its replacement. After a successful rotation the old cookie
// value must fail GetByTokenHash. Two processes racing to rotate the same
// session resolve reject-stale: exactly one wins, the loser sees ErrNotFound
// and has to re-authenticate.
type Store interface {
	Create(ctx context.Context, s *RefreshSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshSession, error)
	Rotate(ctx context.Context, oldID string, replacement *RefreshSession) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) error
}
