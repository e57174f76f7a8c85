package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle keeps one token bucket per actor
type Throttle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	now      func() time.Time
	limiters map[int64]*actorLimiter
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows perSecond intents per actor with the given burst.
// A non-positive rate disables throttling.
func NewThrottle(perSecond float64, burst int) *Throttle {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		limiters: make(map[int64]*actorLimiter),
	}
}

// Allow takes a token from the actor's bucket
func (t *Throttle) Allow(actorID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.limiters[actorID]
	if !ok {
		entry = &actorLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[actorID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Prune forgets actors idle for longer than idle and returns how many were dropped
func (t *Throttle) Prune(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idle)
	removed := 0
	for actorID, entry := range t.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(t.limiters, actorID)
			removed++
		}
	}
	return removed
}
