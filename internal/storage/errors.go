package storage

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid storage configuration")
	ErrInvalidKey        = errors.New("invalid object key")
	ErrObjectNotFound    = errors.New("object not found")
	ErrBucketNotFound    = errors.New("bucket not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnavailable       = errors.New("object store unavailable")
	ErrOperationTimeout  = errors.New("storage operation timed out")
	ErrOperationCanceled = errors.New("storage operation canceled")
)
