package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/origan-dev/gateway/internal/storage"
)

const objectKeyPrefix = "challenges/"

// ObjectStore persists challenges in the shared object store under
// challenges/{token}. Expiry is recorded in the stored record and checked
// on read; stale records are deleted opportunistically.
type ObjectStore struct {
	store storage.ObjectStore
}

// NewObjectStore creates a challenge store backed by the object store.
func NewObjectStore(store storage.ObjectStore) *ObjectStore {
	return &ObjectStore{store: store}
}

func (s *ObjectStore) Put(ctx context.Context, token, keyAuthorization string, expires time.Time) error {
	if token == "" {
		return ErrEmptyToken
	}

	data, err := json.Marshal(Challenge{
		Token:            token,
		KeyAuthorization: keyAuthorization,
		Expires:          expires.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	return s.store.Put(ctx, objectKeyPrefix+token, data, "application/json")
}

func (s *ObjectStore) Get(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	data, err := s.store.Get(ctx, objectKeyPrefix+token)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("read challenge: %w", err)
	}

	var c Challenge
	if err := json.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("decode challenge: %w", err)
	}

	if !c.Expires.After(time.Now()) {
		_ = s.store.Delete(ctx, objectKeyPrefix+token)
		return "", ErrChallengeNotFound
	}

	return c.KeyAuthorization, nil
}

func (s *ObjectStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := s.store.Delete(ctx, objectKeyPrefix+token); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}
