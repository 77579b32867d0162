package identity

import "github.com/okian/servhooks/pkg/logger"

// Default placeholder settings.
const (
	DefaultGuestPrefix = "Guest"
	DefaultMaxAttempts = 30
	DefaultMaxSuffix   = 9999
	DefaultNickLen     = 30
	DefaultServiceNick = "NickServ"
)

// Option configures a Controller.
type Option func(*Controller)

// WithGuestPrefix sets the placeholder prefix.
func WithGuestPrefix(prefix string) Option {
	return func(c *Controller) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithMaxAttempts sets how many random candidates are tried.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithMaxSuffix sets the largest numeric suffix.
func WithMaxSuffix(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxSuffix = n
		}
	}
}

// WithNickLen bounds generated nicknames in bytes.
func WithNickLen(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.nickLen = n
		}
	}
}

// WithServiceNick sets the nickname notices are sent from.
func WithServiceNick(nick string) Option {
	return func(c *Controller) {
		if nick != "" {
			c.serviceNick = nick
		}
	}
}

// WithRandom replaces the suffix source. fn(n) must return a value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(c *Controller) {
		if fn != nil {
			c.randN = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
