package identity

import (
	"context"
	"strconv"

	"github.com/okian/servhooks/internal/domain/text"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// AllocatePlaceholderNick returns a guest nickname no live session holds.
// It tries random suffixes first, then probes the suffix space in order
// starting after the last random pick. Only when every suffix is taken
// does it return the last random candidate. It never fails.
func (c *Controller) AllocatePlaceholderNick(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocatePlaceholder(ctx)
}

// allocatePlaceholder expects c.mu held.
func (c *Controller) allocatePlaceholder(ctx context.Context) string {
	last := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		last = 1 + c.randN(c.maxSuffix)
		if nick := c.placeholder(last); c.free(nick) {
			metrics.RecordPlaceholderAttempts(attempt)
			return nick
		}
	}
	metrics.RecordPlaceholderAttempts(c.maxAttempts)

	for step := 1; step <= c.maxSuffix; step++ {
		n := (last-1+step)%c.maxSuffix + 1
		if nick := c.placeholder(n); c.free(nick) {
			metrics.RecordPlaceholderFallback("probe")
			c.logger.Debug(ctx, "guest nick found by probing", logger.String("nick", nick))
			return nick
		}
	}

	nick := c.placeholder(last)
	metrics.RecordPlaceholderFallback("exhausted")
	c.logger.Warn(ctx, "every guest nick is taken, reusing a held one",
		logger.String("nick", nick),
		logger.Int("max_suffix", c.maxSuffix),
	)
	return nick
}

func (c *Controller) placeholder(n int) string {
	return text.Bound(c.prefix+strconv.Itoa(n), c.nickLen).String()
}

func (c *Controller) free(nick string) bool {
	_, taken := c.registry.FindByNick(nick)
	return !taken
}
