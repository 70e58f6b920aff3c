package challenge

import "errors"

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrEmptyToken        = errors.New("challenge token cannot be empty")
)
