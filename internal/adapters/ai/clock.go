package ai

import "time"

// Clock abstracts wall-clock reads so breaker cooldowns and cache TTL are
// testable with a simulated clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
