package ai

import (
	"errors"
	"sync"
	"time"

	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
)

// circuitBreaker tracks consecutive auth-class failures per provider. After
// threshold consecutive failures the provider is disabled for the cooldown
// window, then eligible again immediately. Non-auth failures never touch the
// counter; a single success resets it.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	clock     Clock
	state     map[string]*breakerState
}

type breakerState struct {
	failures      int
	disabledUntil time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration, clock Clock) *circuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clock,
		state:     make(map[string]*breakerState),
	}
}

// Allow reports whether the provider is outside its cooldown window.
func (b *circuitBreaker) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.state[provider]
	if !ok {
		return true
	}
	return !b.clock.Now().Before(s.disabledUntil)
}

// RecordSuccess resets the provider's failure counter.
func (b *circuitBreaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.state[provider]; ok {
		s.failures = 0
		s.disabledUntil = time.Time{}
	}
}

// RecordFailure counts auth-class failures only. Crossing the threshold
// disables the provider for the cooldown window.
func (b *circuitBreaker) RecordFailure(provider string, err error) {
	if !errors.Is(err, providers.ErrCompletionUnauthorized) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.state[provider]
	if !ok {
		s = &breakerState{}
		b.state[provider] = s
	}

	s.failures++
	if s.failures >= b.threshold {
		s.disabledUntil = b.clock.Now().Add(b.cooldown)
		s.failures = 0
	}
}
