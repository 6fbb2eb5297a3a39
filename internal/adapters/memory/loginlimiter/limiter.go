package loginlimiter

import (
	"context"
	"sync"
	"time"

	"github.com/yoga-studio/booking-api/internal/ports/out/clock"
)

// Limiter is an in-memory fixed-window implementation of loginlimiter.Limiter.
type Limiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	max      int
	cooldown time.Duration
	entries  map[string]entry
}

type entry struct {
	failures int
	resetAt  time.Time
}

func New(clk clock.Clock, maxAttempts int, cooldown time.Duration) *Limiter {
	return &Limiter{
		clock:    clk,
		max:      maxAttempts,
		cooldown: cooldown,
		entries:  make(map[string]entry),
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.current(key)
	if !ok {
		return true, nil
	}
	return e.failures < l.max, nil
}

func (l *Limiter) RecordFailure(ctx context.Context, key string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.current(key)
	if !ok {
		e = entry{resetAt: l.clock.Now().Add(l.cooldown)}
	}
	e.failures++
	l.entries[key] = e
	return nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	_ = ctx
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
	return nil
}

// current returns the live window for key, dropping an expired one. Caller holds mu.
func (l *Limiter) current(key string) (entry, bool) {
	e, ok := l.entries[key]
	if !ok {
		return entry{}, false
	}
	if !l.clock.Now().Before(e.resetAt) {
		delete(l.entries, key)
		return entry{}, false
	}
	return e, true
}
