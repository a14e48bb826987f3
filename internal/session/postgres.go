package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rezom-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore implements Store over database/sql (pgx stdlib driver).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rs *RefreshSession) error {
	return createTx(ctx, s.db, rs)
}

func createTx(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, rs *RefreshSession) error {
	if rs.ID == "" {
		rs.ID = uuid.NewString()
	}

	query := `
		INSERT INTO refresh_sessions (id, user_id, token_hash, csrf_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := q.QueryRowContext(ctx, query,
		rs.ID, rs.UserID, rs.TokenHash, rs.CSRFToken, rs.ExpiresAt,
	).Scan(&rs.CreatedAt)
	if err != nil {
		return fmt.Errorf("create refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshSession, error) {
	query := `
		SELECT id, user_id, token_hash, csrf_token, expires_at, created_at
		FROM refresh_sessions
		WHERE token_hash = $1 AND expires_at > now()`

	rs := &RefreshSession{}
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&rs.ID, &rs.UserID, &rs.TokenHash, &rs.CSRFToken, &rs.ExpiresAt, &rs.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh session: %w", err)
	}
	return rs, nil
}

// Rotate removes the old session and inserts its replacement in one
// transaction. The guarded delete makes concurrent rotations of the same
// session resolve reject-stale: the transaction that finds zero rows to
// delete aborts with ErrNotFound.
func (s *PostgresStore) Rotate(ctx context.Context, oldID string, replacement *RefreshSession) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, oldID)
		if err != nil {
			return fmt.Errorf("delete rotated session: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return createTx(ctx, tx, replacement)
	})
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= now()`); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
