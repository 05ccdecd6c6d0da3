package resilience

import (
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/charmbracelet/log"

	"github.com/pytorch/alerting-infra/internal/alerterr"
)

// BreakerState is the circuit state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// Breaker is a circuit breaker around the tracker client. Consecutive
// failures within a window trip it OPEN; during the cool-down calls fail
// fast without a network attempt; after the cool-down one trial call is
// let through, and its outcome closes or reopens the circuit.
type Breaker struct {
	mu sync.Mutex

	state       BreakerState
	failures    int
	windowStart time.Time
	openedAt    time.Time
	trialDone   bool

	threshold int
	window    time.Duration
	cooldown  time.Duration

	now func() time.Time
	log *log.Logger
}

// NewBreaker creates a closed breaker tripping after threshold failures
// within window, cooling down for cooldown before a trial call.
func NewBreaker(threshold int, window, cooldown time.Duration) *Breaker {
	return &Breaker{
		state:     BreakerClosed,
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		now:       time.Now,
		log:       log.With("component", "breaker"),
	}
}

// Do runs fn through the circuit. When the circuit is open it returns a
// tracker-unavailable error without invoking fn, so the pipeline can fall
// back to degraded success instead of stalling on a tracker outage.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return alerterr.TrackerUnavailable("circuit open, tracker call skipped")
	}
	err := fn()
	if err != nil && !alerterr.IsValidation(err) {
		b.failure()
		return err
	}
	b.success()
	return err
}

// State returns the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.transition(BreakerHalfOpen)
			b.trialDone = true
			return true
		}
		return false
	case BreakerHalfOpen:
		// Exactly one trial call per half-open period.
		if !b.trialDone {
			b.trialDone = true
			return true
		}
		return false
	}
	return true
}

func (b *Breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.transition(BreakerClosed)
	}
	b.failures = 0
}

func (b *Breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case BreakerHalfOpen:
		b.openedAt = now
		b.transition(BreakerOpen)
	case BreakerClosed:
		if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.window {
			b.windowStart = now
			b.failures = 0
		}
		b.failures++
		if b.failures >= b.threshold {
			b.openedAt = now
			b.transition(BreakerOpen)
		}
	}
}

// transition is called with the lock held.
func (b *Breaker) transition(next BreakerState) {
	prev := b.state
	b.state = next
	if next == BreakerClosed {
		b.failures = 0
		b.windowStart = time.Time{}
	}
	if next == BreakerHalfOpen {
		b.trialDone = false
	}
	metrics.GetOrCreateCounter(`tracker_breaker_transitions_total{to="` + string(next) + `"}`).Inc()
	b.log.Warn("circuit state change", "from", prev, "to", next, "failures", b.failures)
}
