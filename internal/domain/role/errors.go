package role

import "errors"

// Sentinel errors for this package.
var (
	ErrNoPrivilege    = errors.New("you do not have the required privilege to set network roles")
	ErrNeedMoreParams = errors.New("usage: SETROLE <account> <role>")
	ErrInvalidRole    = errors.New("invalid role")
	ErrStore          = errors.New("metadata store")
)

// ValidationError rejects a role value before anything is stored. Reason
// is safe to show to the operator.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Unwrap matches ErrInvalidRole.
func (e *ValidationError) Unwrap() error { return ErrInvalidRole }
