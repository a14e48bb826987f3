package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends audit events to the audit_events table. The table is
// INSERT-only; retention is handled by time partitioning, not deletes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO audit_events (id, type, user_id, email, ip_address, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.UserID, e.Email, e.IPAddress, e.Message, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}
