package proxy

import "errors"

var ErrInvalidRuntimeURL = errors.New("invalid execution runtime URL")
