package enrichment

import (
	"time"

	"github.com/okian/servhooks/pkg/logger"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSubmitter routes jobs through a queue instead of running them inline.
func WithSubmitter(s Submitter) Option {
	return func(o *Orchestrator) { o.submitter = s }
}

// WithThrottle sets the per-channel lookup limiter.
func WithThrottle(t *Throttle) Option {
	return func(o *Orchestrator) { o.throttle = t }
}

// WithMessageLimit sets the outbound line ceiling in bytes.
func WithMessageLimit(limit int) Option {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
