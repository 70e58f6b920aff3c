package domain

import (
	"context"
	"time"
)

// Repository persists domain records. Implementations must be safe for
// concurrent use.
type Repository interface {
	// Create inserts a new record; an existing name returns ErrDomainExists.
	Create(ctx context.Context, d *Domain) error

	// Get returns the record for name, or ErrDomainNotFound.
	Get(ctx context.Context, name string) (*Domain, error)

	// Update overwrites the record for d.Name, or ErrDomainNotFound.
	Update(ctx context.Context, d *Domain) error

	// Delete removes the record for name, or ErrDomainNotFound.
	Delete(ctx context.Context, name string) error

	// ListRenewable returns domains the renewal sweep should process:
	// valid certificates expiring before the given time, plus failed and
	// expired domains awaiting another attempt.
	ListRenewable(ctx context.Context, expiringBefore time.Time) ([]*Domain, error)

	// ListStuck returns domains sitting in validating or issuing whose
	// last update is older than the given time, which indicates an
	// interrupted issuance (process restart mid-flight).
	ListStuck(ctx context.Context, updatedBefore time.Time) ([]*Domain, error)
}
