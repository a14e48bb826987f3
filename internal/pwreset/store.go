// Package pwreset stores single-use password-reset tokens in redis.
// Only the SHA-256 hash of the token is used as the key; the TTL bounds the
// reset window without any cleanup job.
package pwreset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rezom-platform/internal/session"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pwreset:"

// DefaultTTL matches the expiry stated in the reset mail.
const DefaultTTL = 20 * time.Minute

var ErrNotFound = errors.New("reset token not found")

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Issue creates a token for userID and returns the plaintext value destined
// for the reset mail.
func (s *RedisStore) Issue(ctx context.Context, userID string) (string, error) {
	token, err := session.NewToken()
	if err != nil {
		return "", err
	}
	key := keyPrefix + session.HashToken(token)
	if err := s.rdb.Set(ctx, key, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// Consume resolves and deletes the token in one round trip (GETDEL), so a
// token can never be redeemed twice even under concurrent requests.
func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	key := keyPrefix + session.HashToken(token)
	userID, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}
