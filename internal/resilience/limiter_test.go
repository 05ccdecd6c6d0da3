package resilience

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowsWithinBurst(t *testing.T) {
	l := NewLimiter(1, 5)
	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("Expected call %d within burst to pass", i)
		}
	}
	if l.Allow() {
		t.Error("Expected 6th call to be throttled")
	}
}

func TestLimiter_Refills(t *testing.T) {
	l := NewLimiter(100, 1)
	if !l.Allow() {
		t.Fatal("Expected first call to pass")
	}
	if l.Allow() {
		t.Fatal("Expected bucket to be empty")
	}

	time.Sleep(20 * time.Millisecond)
	if !l.Allow() {
		t.Error("Expected refill after sleep")
	}
}

func TestLimiter_WaitBlocksThenProceeds(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Wait took far longer than the refill interval")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Fatal("Expected context deadline error")
	}
}

func TestLimiter_TokensCapped(t *testing.T) {
	l := NewLimiter(1000, 3)
	time.Sleep(10 * time.Millisecond)
	if tokens := l.Tokens(); tokens > 3 {
		t.Errorf("Expected tokens capped at burst, got %f", tokens)
	}
}
