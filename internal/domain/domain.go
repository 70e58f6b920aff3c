// Package domain holds custom-domain records and their certificate state
// machine. Records are owned by the certificate manager for status
// transitions; everything else reads them as snapshots.
package domain

import (
	"fmt"
	"time"
)

// Domain is one tenant-attached domain and its certificate state.
type Domain struct {
	Name                 string
	ProjectID            string
	TrackID              string
	IsCustom             bool
	CertificateStatus    Status
	CertificateIssuedAt  time.Time
	CertificateExpiresAt time.Time
	LastCertificateError string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Transition moves the domain to the next certificate status, enforcing
// the state machine. The caller persists the record afterwards.
func (d *Domain) Transition(next Status) error {
	if !d.CertificateStatus.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s for %s",
			ErrInvalidTransition, d.CertificateStatus, next, d.Name)
	}
	d.CertificateStatus = next
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail records an unrecoverable certificate error. The domain keeps
// serving traffic; failure only affects issuance.
func (d *Domain) Fail(cause error) error {
	if err := d.Transition(StatusFailed); err != nil {
		return err
	}
	d.LastCertificateError = cause.Error()
	return nil
}
