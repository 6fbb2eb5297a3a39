package clock

import "time"

// Clock is the time source for token expiry, login throttling windows and record timestamps.
// Tests drive it with memory/clock.ManualClock.
type Clock interface {
	Now() time.Time
}
