package domain

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository keeps domain records in process memory, for tests and
// local development.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Domain
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Domain)}
}

func (r *MemoryRepository) Create(ctx context.Context, d *Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDomainExists, d.Name)
	}
	r.records[d.Name] = *d
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, name string) (*Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}
	return &d, nil
}

func (r *MemoryRepository) Update(ctx context.Context, d *Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[d.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, d.Name)
	}
	r.records[d.Name] = *d
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[name]; !ok {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}
	delete(r.records, name)
	return nil
}

func (r *MemoryRepository) ListRenewable(ctx context.Context, expiringBefore time.Time) ([]*Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Domain
	for _, d := range r.records {
		switch d.CertificateStatus {
		case StatusValid:
			if d.CertificateExpiresAt.Before(expiringBefore) {
				copied := d
				out = append(out, &copied)
			}
		case StatusFailed, StatusExpired:
			copied := d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListStuck(ctx context.Context, updatedBefore time.Time) ([]*Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Domain
	for _, d := range r.records {
		switch d.CertificateStatus {
		case StatusValidating, StatusIssuing:
			if d.UpdatedAt.Before(updatedBefore) {
				copied := d
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}
