// Package resilience protects calls to the external issue tracker: a
// token-bucket limiter throttles mutations and a circuit breaker fails
// fast during outages. Both are process-scoped and safe for concurrent
// callers.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Limiter implements a token-bucket rate limiter shared across all
// mutating tracker calls in the process.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewLimiter creates a limiter with the given refill rate (tokens per
// second) and burst capacity.
func NewLimiter(ratePerSecond float64, burstCapacity int) *Limiter {
	return &Limiter{
		tokens:     float64(burstCapacity),
		maxTokens:  float64(burstCapacity),
		refillRate: ratePerSecond,
		lastRefill: time.Now(),
	}
}

// refill adds tokens based on elapsed time since the last refill.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	metrics.GetOrCreateCounter("tracker_limiter_throttled_total").Inc()
	return false
}

// Wait blocks until a token is available or the context is done. A call
// that cannot acquire a token within its context deadline is treated by
// the caller as a throttling failure of the tracker.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		tokensNeeded := 1 - l.tokens
		waitTime := time.Duration(tokensNeeded / l.refillRate * float64(time.Second))
		if waitTime < time.Millisecond {
			waitTime = time.Millisecond
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			metrics.GetOrCreateCounter("tracker_limiter_throttled_total").Inc()
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Tokens returns the current number of available tokens (approximate).
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}
