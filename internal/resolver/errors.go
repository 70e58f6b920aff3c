package resolver

import "errors"

var (
	// ErrHostNotFound means the host is not registered with the platform.
	// Terminal for the request; cached only briefly in the negative table.
	ErrHostNotFound = errors.New("host not found")

	// ErrUpstreamUnavailable means the metadata service could not be
	// reached on a cache miss. Never cached.
	ErrUpstreamUnavailable = errors.New("deployment metadata unavailable")
)
