// Package storage defines the object store consumed by the gateway for
// deployed assets, ACME challenge tokens, certificates, and the ACME
// account key. Implementations must be safe for concurrent use.
package storage

import "context"

// ObjectStore is durable key/value byte storage.
type ObjectStore interface {
	// Get returns the object stored under key, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key with the given content type, overwriting
	// any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes the object stored under key. Deleting a missing key
	// returns ErrObjectNotFound.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) bool
}
