package fetch

import (
	"errors"
	"fmt"
)

// Sentinel errors for this package.
var (
	ErrTransport = errors.New("transport failure")
	ErrTimeout   = errors.New("request timed out")
)

// TransportError describes one failed outbound call. Neither URL nor the
// message carries the query string.
type TransportError struct {
	Op     string
	URL    string // scheme, host and path
	Status int    // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": transport failure"
}

// Unwrap matches ErrTransport, plus ErrTimeout for expired deadlines, plus
// the underlying cause.
func (e *TransportError) Unwrap() []error {
	errs := []error{ErrTransport}
	if e.timedOut() {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *TransportError) timedOut() bool {
	if e.Err == nil {
		return false
	}
	if errors.Is(e.Err, ErrTimeout) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}
