package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a token bucket per key in process memory.
// Buckets refill continuously at Limit/Window and hold at most Limit tokens.
type MemoryLimiter struct {
	policy    Policy
	clock     func() time.Time
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	lastPrune time.Time
}

// NewMemoryLimiter constructs a limiter for the policy. A nil clock uses time.Now.
func NewMemoryLimiter(policy Policy, clock func() time.Time) (*MemoryLimiter, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryLimiter{
		policy:    policy,
		clock:     clock,
		entries:   make(map[string]*memoryEntry),
		lastPrune: clock(),
	}, nil
}

// Allow consumes one token for key when available.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	entry, ok := l.entries[key]
	if !ok {
		entry = &memoryEntry{
			limiter: rate.NewLimiter(rate.Every(l.policy.Window/time.Duration(l.policy.Limit)), l.policy.Limit),
		}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		// Denied requests must not borrow from future refills.
		reservation.CancelAt(now)
		return Decision{
			Allowed:    false,
			Limit:      l.policy.Limit,
			Remaining:  0,
			RetryAfter: delay,
		}, nil
	}

	remaining := int(math.Floor(entry.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Limit:     l.policy.Limit,
		Remaining: remaining,
	}, nil
}

// Len reports how many keys are currently tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// pruneLocked drops keys idle for a full window; their buckets are full again anyway.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.policy.Window {
		return
	}
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) >= l.policy.Window {
			delete(l.entries, key)
		}
	}
	l.lastPrune = now
}
