// Package identity keeps account nicknames consistent across login and
// logout: it evicts ghost sessions, resolves nickname collisions and hands
// out unique guest nicknames.
package identity

import (
	"context"

	"github.com/okian/servhooks/internal/domain/model"
)

// SessionRegistry is the view of live sessions the controller acts on.
// Nickname comparisons are case-insensitive.
type SessionRegistry interface {
	Session(id string) (model.Session, bool)
	FindByAccount(account string) []model.Session
	FindByNick(nick string) (model.Session, bool)
	// CanonicalNick returns the registered nickname of account.
	CanonicalNick(account string) (string, bool)
	Rename(ctx context.Context, sessionID, nick string) error
	// Terminate must be a no-op for sessions that are already gone.
	Terminate(ctx context.Context, sessionID, reason string) error
}

// Notifier sends a private notice from a service to a nickname.
type Notifier interface {
	NotifyPrivately(ctx context.Context, source, target, text string) error
}
