package loginlimiter

import (
	"context"
	"errors"
)

// ErrUnavailable wraps backend failures (e.g. Redis down).
var ErrUnavailable = errors.New("login limiter unavailable")

// Limiter tracks failed login attempts per key within a cooldown window.
type Limiter interface {
	// Allow reports whether another attempt is permitted for key.
	Allow(ctx context.Context, key string) (bool, error)
	// RecordFailure counts a failed attempt for key.
	RecordFailure(ctx context.Context, key string) error
	// Reset clears the counter for key, typically after a successful login.
	Reset(ctx context.Context, key string) error
}
