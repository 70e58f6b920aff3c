// Package challenge provides durable storage for in-flight ACME HTTP-01
// challenge tokens. Entries expire; an expired entry behaves exactly like
// a missing one.
package challenge

import (
	"context"
	"time"
)

// Challenge is one in-flight HTTP-01 validation.
type Challenge struct {
	Token            string    `json:"token"`
	KeyAuthorization string    `json:"keyAuthorization"`
	Expires          time.Time `json:"expires"`
}

// Store persists challenge tokens keyed by token. Implementations must be
// safe for concurrent use; the gateway reads from the store on every
// ACME validation request.
type Store interface {
	// Put stores the key authorization for token until expires.
	Put(ctx context.Context, token, keyAuthorization string, expires time.Time) error

	// Get returns the key authorization for token.
	// Missing and expired tokens both return ErrChallengeNotFound.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes the entry for token. Deleting a missing token is not
	// an error: cleanup runs on both success and failure paths.
	Delete(ctx context.Context, token string) error
}
