package session

import (
	"context"
	"testing"
	"time"
)

func newSession(t *testing.T, userID string) (*RefreshSession, string) {
	t.Helper()
	token, err := NewToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	csrf, err := NewToken()
	if err != nil {
		t.Fatalf("csrf: %v", err)
	}
	return &RefreshSession{
		UserID:    userID,
		TokenHash: HashToken(token),
		CSRFToken: csrf,
		ExpiresAt: time.Now().Add(time.Hour),
	}, token
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rs, token := newSession(t, "u1")
	if err := store.Create(ctx, rs); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" || got.CSRFToken != rs.CSRFToken {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestMemoryStore_RotateInvalidatesOldToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	old, oldToken := newSession(t, "u1")
	if err := store.Create(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}

	replacement, newToken := newSession(t, "u1")
	if err := store.Rotate(ctx, old.ID, replacement); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if _, err := store.GetByTokenHash(ctx, HashToken(oldToken)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for rotated-out token, got %v", err)
	}
	if _, err := store.GetByTokenHash(ctx, HashToken(newToken)); err != nil {
		t.Fatalf("expected replacement to resolve, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one live session, got %d", store.Len())
	}
}

func TestMemoryStore_RotateTwiceRejectsStale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	old, _ := newSession(t, "u1")
	if err := store.Create(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := newSession(t, "u1")
	if err := store.Rotate(ctx, old.ID, first); err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	// Second rotation of the already-consumed session must lose.
	second, _ := newSession(t, "u1")
	if err := store.Rotate(ctx, old.ID, second); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on stale rotate, got %v", err)
	}
}

func TestMemoryStore_ExpiredSessionNotReturned(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rs, token := newSession(t, "u1")
	rs.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Create(ctx, rs); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.GetByTokenHash(ctx, HashToken(token)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}
	if err := store.DeleteExpired(ctx); err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired session to be purged")
	}
}

func TestMemoryStore_DeleteByUserID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, _ := newSession(t, "u1")
	b, _ := newSession(t, "u1")
	c, cToken := newSession(t, "u2")
	for _, rs := range []*RefreshSession{a, b, c} {
		if err := store.Create(ctx, rs); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := store.DeleteByUserID(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one remaining session, got %d", store.Len())
	}
	if _, err := store.GetByTokenHash(ctx, HashToken(cToken)); err != nil {
		t.Fatalf("u2 session should survive, got %v", err)
	}
}
