package domain

import "errors"

var (
	ErrDomainNotFound    = errors.New("domain not found")
	ErrDomainExists      = errors.New("domain already exists")
	ErrInvalidTransition = errors.New("invalid certificate status transition")
)
