package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// Class selects which request budget applies.
type Class string

const (
	// ClassGeneral covers every protected endpoint.
	ClassGeneral Class = "general"
	// ClassChat covers the AI-backed endpoints, which have a tighter budget.
	ClassChat Class = "chat"
)

// Result describes the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SlidingWindowLimiter tracks request timestamps per identity and class.
// A denied request is not recorded, so hammering a limited endpoint does
// not extend the penalty. State is process-local: each instance enforces
// its own budget.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	log     logger.Logger
}

// NewSlidingWindowLimiter creates a limiter.
func NewSlidingWindowLimiter(log logger.Logger) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows: make(map[string][]time.Time),
		log:     log.With(logger.Component("ratelimit")),
	}
}

func limiterKey(identity string, class Class) string {
	return string(class) + ":" + identity
}

// Check records the request if allowed and reports the current budget.
func (l *SlidingWindowLimiter) Check(identity string, class Class, policy credentials.Policy) Result {
	now := time.Now()
	window := policy.Window()
	limit := policy.Limit(class == ClassChat)
	key := limiterKey(identity, class)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := evict(l.windows[key], now.Add(-window))
	resetAt := now.Add(window)

	if len(kept) >= limit {
		l.windows[key] = kept
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}
	}

	kept = append(kept, now)
	l.windows[key] = kept

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   resetAt,
	}
}

// Status reports the budget without recording a request.
func (l *SlidingWindowLimiter) Status(identity string, class Class, policy credentials.Policy) Result {
	now := time.Now()
	window := policy.Window()
	limit := policy.Limit(class == ClassChat)
	key := limiterKey(identity, class)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := evict(l.windows[key], now.Add(-window))
	l.windows[key] = kept

	resetAt := now.Add(window)
	remaining := limit - len(kept)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   remaining > 0,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// evict drops timestamps at or before cutoff. Timestamps are appended in
// order, so the slice stays sorted.
func evict(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[i:]...)
}

// Start launches the background sweep that drops idle identities. It
// stops when ctx is done.
func (l *SlidingWindowLimiter) Start(ctx context.Context, window time.Duration) {
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep(window)
			}
		}
	}()
}

func (l *SlidingWindowLimiter) sweep(window time.Duration) {
	cutoff := time.Now().Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, stamps := range l.windows {
		kept := evict(stamps, cutoff)
		if len(kept) == 0 {
			delete(l.windows, key)
			removed++
			continue
		}
		l.windows[key] = kept
	}
	if removed > 0 {
		l.log.Debug("swept idle rate-limit windows", logger.Int("removed", removed))
	}
}
