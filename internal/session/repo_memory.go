package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a simple in-memory session store for tests and early development.

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*RefreshSession // key: id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*RefreshSession{}}
}

func (m *MemoryStore) Create(ctx context.Context, rs *RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(rs)
	return nil
}

func (m *MemoryStore) createLocked(rs *RefreshSession) {
	if rs.ID == "" {
		rs.ID = uuid.NewString()
	}
	if rs.CreatedAt.IsZero() {
		rs.CreatedAt = time.Now()
	}
	cp := *rs
	m.sessions[rs.ID] = &cp
}

func (m *MemoryStore) GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rs := range m.sessions {
		if rs.TokenHash == tokenHash && rs.ExpiresAt.After(time.Now()) {
			cp := *rs
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Rotate(ctx context.Context, oldID string, replacement *RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[oldID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, oldID)
	m.createLocked(replacement)
	return nil
}

func (m *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) DeleteByUserID(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rs := range m.sessions {
		if rs.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rs := range m.sessions {
		if !rs.ExpiresAt.After(time.Now()) {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Len reports the number of live sessions; test helper.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
