// Package role manages the operator rank shown in account INFO output.
package role

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// Key is the metadata key the rank is stored under.
const Key = "private:network_role"

// MaxLen bounds a rank in bytes.
const MaxLen = 64

// Store keeps per-account metadata.
type Store interface {
	Get(ctx context.Context, account, key string) (string, bool, error)
	Set(ctx context.Context, account, key, value string) error
	Delete(ctx context.Context, account, key string) error
}

// SetRoleRequest is a SETROLE invocation. Privileged is the host's verdict
// on the caller.
type SetRoleRequest struct {
	Source     string
	Account    string
	Role       string
	Privileged bool
}

// Service sets and reads operator ranks.
type Service struct {
	store  Store
	logger logger.Logger
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, logger: logger.Get().Named("role")}
}

// SetRole validates and stores req.Role for req.Account and returns the
// confirmation line for the operator. It does not check that the account
// exists: the host resolves req.Account to a registered account before
// forwarding the command, and any name given here is stored as is.
func (s *Service) SetRole(ctx context.Context, req SetRoleRequest) (string, error) {
	if !req.Privileged {
		metrics.RecordRoleUpdate("denied")
		return "", ErrNoPrivilege
	}
	if req.Account == "" || req.Role == "" {
		metrics.RecordRoleUpdate("invalid")
		return "", ErrNeedMoreParams
	}
	if err := Validate(req.Role); err != nil {
		metrics.RecordRoleUpdate("invalid")
		return "", err
	}

	if err := s.store.Set(ctx, req.Account, Key, req.Role); err != nil {
		metrics.RecordRoleUpdate("error")
		return "", fmt.Errorf("%w: set %s: %w", ErrStore, req.Account, err)
	}

	metrics.RecordRoleUpdate("set")
	s.logger.Info(ctx, "SETROLE",
		logger.String("source", req.Source),
		logger.String("account", req.Account),
		logger.String("role", req.Role),
	)
	return fmt.Sprintf("Oper rank \x02%s\x02 has been set for account \x02%s\x02.", req.Role, req.Account), nil
}

// Validate rejects ranks that could break an output line or a command.
func Validate(role string) error {
	if strings.ContainsAny(role, "\r\n;") {
		return &ValidationError{Field: "role", Reason: "Invalid role name. Role cannot contain newlines or semicolons."}
	}
	if strings.IndexFunc(role, unicode.IsControl) >= 0 {
		return &ValidationError{Field: "role", Reason: "Invalid role name. Role cannot contain control characters."}
	}
	if len(role) > MaxLen {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("Invalid role name. Role cannot be longer than %d bytes.", MaxLen)}
	}
	return nil
}

// InfoLines returns the INFO lines for account. Store errors are logged
// and yield no lines.
func (s *Service) InfoLines(ctx context.Context, account string) []string {
	v, ok, err := s.store.Get(ctx, account, Key)
	if err != nil {
		s.logger.Warn(ctx, "rank lookup failed", logger.String("account", account), logger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return []string{"Oper rank  : " + v}
}

// Forget drops the rank of a deleted account.
func (s *Service) Forget(ctx context.Context, account string) {
	if err := s.store.Delete(ctx, account, Key); err != nil {
		s.logger.Warn(ctx, "rank cleanup failed", logger.String("account", account), logger.Error(err))
		return
	}
	metrics.RecordRoleUpdate("forgotten")
}
