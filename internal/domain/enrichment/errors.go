package enrichment

import (
	"errors"
	"fmt"
)

// Sentinel errors for this package.
var (
	ErrParse          = errors.New("parse lookup response")
	ErrUnknownJobKind = errors.New("unknown job kind")
	ErrNotConfigured  = errors.New("collaborator not configured")
)

// ParseError reports an unreadable lookup response. Msg keeps the
// decoder's own message.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string { return e.Msg }

// Unwrap lets callers match ErrParse and the decoder error.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

func newParseError(err error) *ParseError {
	return &ParseError{Msg: err.Error(), Err: err}
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}
