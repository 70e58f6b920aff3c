package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps challenges in process memory. Suitable for tests and
// single-instance development setups only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Challenge
}

// NewMemoryStore creates an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Challenge)}
}

func (s *MemoryStore) Put(ctx context.Context, token, keyAuthorization string, expires time.Time) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = Challenge{
		Token:            token,
		KeyAuthorization: keyAuthorization,
		Expires:          expires,
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	s.mu.RLock()
	c, ok := s.entries[token]
	s.mu.RUnlock()

	if !ok {
		return "", ErrChallengeNotFound
	}
	if !c.Expires.After(time.Now()) {
		s.mu.Lock()
		delete(s.entries, token)
		s.mu.Unlock()
		return "", ErrChallengeNotFound
	}
	return c.KeyAuthorization, nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
