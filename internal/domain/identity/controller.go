package identity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// Reasons recorded for forced renames.
const (
	RenameLogin     = "login"
	RenameCollision = "collision"
	RenameLogout    = "logout"
)

// GhostReason is the termination reason given to evicted sessions.
const GhostReason = "Nickname reclaimed by owner"

// Controller runs the login and logout hooks against a session registry.
// Hooks are serialized: each one reads the registry and acts on what it
// read before the next one starts.
type Controller struct {
	mu sync.Mutex

	registry SessionRegistry
	notifier Notifier

	prefix      string
	maxAttempts int
	maxSuffix   int
	nickLen     int
	serviceNick string
	randN       func(n int) int

	logger logger.Logger
}

// NewController returns a Controller with guest nicknames "Guest1".."Guest9999".
func NewController(registry SessionRegistry, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		registry:    registry,
		notifier:    notifier,
		prefix:      DefaultGuestPrefix,
		maxAttempts: DefaultMaxAttempts,
		maxSuffix:   DefaultMaxSuffix,
		nickLen:     DefaultNickLen,
		serviceNick: DefaultServiceNick,
		randN:       rand.IntN,
		logger:      logger.Get().Named("identity"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleAuthenticated enforces the account's nickname on the session that
// just logged in. Other sessions bound to the account are notified and
// terminated; a stranger holding the nickname is moved to a guest name.
// Failures on other sessions are logged and skipped.
func (c *Controller) HandleAuthenticated(ctx context.Context, ev model.SessionAuthenticated) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	self, ok := c.registry.Session(ev.SessionID)
	if !ok {
		return fmt.Errorf("authenticated %s: %w", ev.SessionID, ErrUnknownSession)
	}

	canonical, hasCanonical := c.registry.CanonicalNick(ev.Account)
	mustRename := hasCanonical && !strings.EqualFold(self.Nick, canonical)
	if mustRename {
		c.notify(ctx, self.Nick, fmt.Sprintf("You are now logged in as \x02%s\x02. Changing your nickname immediately.", canonical))
	}

	owner := self.Nick
	if hasCanonical {
		owner = canonical
	}
	c.evictGhosts(ctx, ev.Account, self.ID, owner)

	if !mustRename {
		return nil
	}

	if holder, taken := c.registry.FindByNick(canonical); taken && holder.ID != self.ID {
		c.displace(ctx, holder)
	}

	if err := c.registry.Rename(ctx, self.ID, canonical); err != nil {
		metrics.RecordOutboundFailure("rename")
		return fmt.Errorf("rename %s to %s: %w", self.ID, canonical, err)
	}
	metrics.RecordForcedRename(RenameLogin)
	return nil
}

// evictGhosts terminates every session bound to account except keep. The
// set is copied before the first termination.
func (c *Controller) evictGhosts(ctx context.Context, account, keep, owner string) {
	bound := c.registry.FindByAccount(account)
	ghosts := make([]model.Session, 0, len(bound))
	for _, s := range bound {
		if s.ID != keep {
			ghosts = append(ghosts, s)
		}
	}

	for _, g := range ghosts {
		c.notify(ctx, g.Nick, fmt.Sprintf("Your nickname has been reclaimed by %s.", owner))
		if err := c.registry.Terminate(ctx, g.ID, GhostReason); err != nil {
			metrics.RecordGhostEvictFailure()
			c.logger.Warn(ctx, "ghost eviction failed",
				logger.String("account", account),
				logger.String("session", g.ID),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordGhostEvicted()
		c.logger.Info(ctx, "ghost evicted",
			logger.String("account", account),
			logger.String("session", g.ID),
			logger.String("nick", g.Nick),
		)
	}
}

// displace moves a session squatting on another account's nickname to a
// guest nickname.
func (c *Controller) displace(ctx context.Context, holder model.Session) {
	guest := c.allocatePlaceholder(ctx)
	if err := c.registry.Rename(ctx, holder.ID, guest); err != nil {
		metrics.RecordOutboundFailure("rename")
		c.logger.Warn(ctx, "could not move nickname holder",
			logger.String("session", holder.ID),
			logger.String("nick", holder.Nick),
			logger.Error(err),
		)
		return
	}
	metrics.RecordForcedRename(RenameCollision)
	c.logger.Info(ctx, "nickname holder moved to guest nick",
		logger.String("session", holder.ID),
		logger.String("from", holder.Nick),
		logger.String("to", guest),
	)
}

// HandleLoggingOut moves the session to a guest nickname. It always
// allows the logout to proceed.
func (c *Controller) HandleLoggingOut(ctx context.Context, ev model.SessionLoggingOut) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	self, ok := c.registry.Session(ev.SessionID)
	if !ok {
		c.logger.Warn(ctx, "logout for unknown session", logger.String("session", ev.SessionID))
		return true
	}

	c.notify(ctx, self.Nick, "You have logged out. Changing your nickname.")

	guest := c.allocatePlaceholder(ctx)
	if err := c.registry.Rename(ctx, self.ID, guest); err != nil {
		metrics.RecordOutboundFailure("rename")
		c.logger.Error(ctx, "logout rename failed",
			logger.String("session", self.ID),
			logger.String("nick", guest),
			logger.Error(err),
		)
		return true
	}
	metrics.RecordForcedRename(RenameLogout)
	return true
}

func (c *Controller) notify(ctx context.Context, target, text string) {
	if err := c.notifier.NotifyPrivately(ctx, c.serviceNick, target, text); err != nil {
		metrics.RecordOutboundFailure("notice")
		c.logger.Warn(ctx, "notice failed", logger.String("target", target), logger.Error(err))
	}
}
