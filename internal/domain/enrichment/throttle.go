package enrichment

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttleCleanupInterval = 10 * time.Minute

// Throttle limits lookups per channel. A non-positive rate disables it.
type Throttle struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	perChannel  map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewThrottle allows perMinute lookups per channel with the given burst.
func NewThrottle(perMinute float64, burst int) *Throttle {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limit:       limit,
		burst:       burst,
		perChannel:  make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether channel may issue another lookup now.
func (t *Throttle) Allow(channel string) bool {
	if t == nil || t.limit == rate.Inf {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastCleanup) >= throttleCleanupInterval {
		// Idle limiters are full again, so dropping them loses nothing.
		for ch, l := range t.perChannel {
			if l.Tokens() >= float64(t.burst) {
				delete(t.perChannel, ch)
			}
		}
		t.lastCleanup = time.Now()
	}

	l, ok := t.perChannel[channel]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.perChannel[channel] = l
	}
	return l.Allow()
}
