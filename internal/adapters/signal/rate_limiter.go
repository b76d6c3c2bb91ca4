package signal

import (
	"sync"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
)

// RateLimiter caps inbound events per connection over a sliding window.
// The read pump asks it before dispatching; a refused event is answered
// with a rate_limited error and otherwise dropped.
type RateLimiter struct {
	mu       sync.Mutex
	seen     map[domain.ConnID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		seen:     make(map[domain.ConnID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(id domain.ConnID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.interval)

	// Timestamps are appended in order, so the expired ones form a prefix.
	stamps := rl.seen[id]
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	stamps = stamps[i:]

	if len(stamps) >= rl.limit {
		rl.seen[id] = stamps
		return false
	}
	rl.seen[id] = append(stamps, now)
	return true
}

// Forget is called when the connection closes.
func (rl *RateLimiter) Forget(id domain.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.seen, id)
}
