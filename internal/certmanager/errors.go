package certmanager

import "errors"

var (
	// ErrEmailRequired is returned when no ACME account email is configured.
	ErrEmailRequired = errors.New("ACME account email is required")

	// ErrDomainNameRequired is returned for attach calls with an empty name.
	ErrDomainNameRequired = errors.New("domain name is required")

	// ErrDNSVerificationFailed means the domain does not point at the
	// gateway. Attachment is rejected synchronously; no record is created.
	ErrDNSVerificationFailed = errors.New("domain DNS does not point to the gateway")

	// ErrIssuanceInterrupted marks domains found stuck in validating or
	// issuing after a restart; the sweep retries them.
	ErrIssuanceInterrupted = errors.New("certificate issuance interrupted")

	// ErrNoServerName is returned for TLS handshakes without SNI.
	ErrNoServerName = errors.New("no server name provided")

	// ErrCertificateNotFound means no stored certificate exists for the
	// requested domain.
	ErrCertificateNotFound = errors.New("certificate not found")
)
