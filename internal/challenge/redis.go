package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "acme:challenge:"

// RedisStore persists challenges in Redis with native TTL expiry.
// Preferred for multi-instance deployments where issuance and serving may
// land on different gateway processes.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed challenge store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, token, keyAuthorization string, expires time.Time) error {
	if token == "" {
		return ErrEmptyToken
	}

	ttl := time.Until(expires)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired at %s", expires)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+token, keyAuthorization, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	val, err := s.client.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("read challenge: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}
