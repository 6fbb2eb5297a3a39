package loginlimiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoga-studio/booking-api/internal/ports/out/loginlimiter"
)

// Limiter is a Redis implementation of loginlimiter.Limiter.
// Failures are counted with INCR; the first failure of a window sets the TTL.
type Limiter struct {
	redis    *redis.Client
	prefix   string
	max      int
	cooldown time.Duration
}

func New(client *redis.Client, maxAttempts int, cooldown time.Duration) *Limiter {
	return &Limiter{
		redis:    client,
		prefix:   "login:fail:",
		max:      maxAttempts,
		cooldown: cooldown,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	raw, err := l.redis.Get(ctx, l.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", loginlimiter.ErrUnavailable, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return false, fmt.Errorf("%w: bad counter %q", loginlimiter.ErrUnavailable, raw)
	}
	return n < l.max, nil
}

func (l *Limiter) RecordFailure(ctx context.Context, key string) error {
	k := l.prefix + key
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", loginlimiter.ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", loginlimiter.ErrUnavailable, err)
		}
	}
	return nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", loginlimiter.ErrUnavailable, err)
	}
	return nil
}
