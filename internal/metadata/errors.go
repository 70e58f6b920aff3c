package metadata

import "errors"

var (
	ErrMissingBaseURL      = errors.New("control plane base URL is required")
	ErrDomainNotRegistered = errors.New("domain not registered")
	ErrUnavailable         = errors.New("deployment-metadata service unavailable")
	ErrMalformedResponse   = errors.New("malformed resolve response")
)
