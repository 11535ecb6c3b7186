package ai

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func authErr() error {
	return fmt.Errorf("%w: status 401", providers.ErrCompletionUnauthorized)
}

func TestBreaker_TripsAfterThreeAuthFailures(t *testing.T) {
	clock := newFakeClock()
	b := newCircuitBreaker(3, 5*time.Minute, clock)

	b.RecordFailure("openai", authErr())
	b.RecordFailure("openai", authErr())
	if !b.Allow("openai") {
		t.Fatal("provider should still be allowed after 2 failures")
	}

	b.RecordFailure("openai", authErr())
	if b.Allow("openai") {
		t.Fatal("provider should be disabled after 3 consecutive auth failures")
	}
}

func TestBreaker_EligibleAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	b := newCircuitBreaker(3, 5*time.Minute, clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure("openai", authErr())
	}

	clock.Advance(5*time.Minute - time.Second)
	if b.Allow("openai") {
		t.Fatal("provider should remain disabled inside the cooldown window")
	}

	clock.Advance(time.Second)
	if !b.Allow("openai") {
		t.Fatal("provider should be eligible immediately after the cooldown elapses")
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	clock := newFakeClock()
	b := newCircuitBreaker(3, 5*time.Minute, clock)

	b.RecordFailure("openai", authErr())
	b.RecordFailure("openai", authErr())
	b.RecordSuccess("openai")

	// Two more failures should not trip: the counter restarted at zero.
	b.RecordFailure("openai", authErr())
	b.RecordFailure("openai", authErr())
	if !b.Allow("openai") {
		t.Fatal("success should have reset the consecutive failure counter")
	}

	b.RecordFailure("openai", authErr())
	if b.Allow("openai") {
		t.Fatal("third consecutive failure after reset should trip")
	}
}

func TestBreaker_NonAuthFailuresIgnored(t *testing.T) {
	clock := newFakeClock()
	b := newCircuitBreaker(3, 5*time.Minute, clock)

	for i := 0; i < 10; i++ {
		b.RecordFailure("openai", errors.New("timeout"))
	}
	if !b.Allow("openai") {
		t.Fatal("non-auth failures must not affect the breaker")
	}
}

func TestBreaker_PerProviderState(t *testing.T) {
	clock := newFakeClock()
	b := newCircuitBreaker(3, 5*time.Minute, clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure("openai", authErr())
	}
	if b.Allow("openai") {
		t.Fatal("openai should be disabled")
	}
	if !b.Allow("anthropic") {
		t.Fatal("anthropic should be unaffected by openai failures")
	}
}
