package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory user repository for tests and early development.

type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]*User // key: id
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{users: map[string]*User{}} }

func (r *MemoryRepo) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range r.users {
		if existing.Email == email {
			return ErrEmailTaken
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}
