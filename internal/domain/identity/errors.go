package identity

import "errors"

// Sentinel errors for this package.
var (
	ErrUnknownSession = errors.New("unknown session")
)
