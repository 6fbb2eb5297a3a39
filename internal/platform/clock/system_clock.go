package clock

import "time"

// SystemClock reads the wall clock in UTC. It satisfies ports/out/clock.Clock.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
