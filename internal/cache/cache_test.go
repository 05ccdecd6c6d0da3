package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", "1")

	v, ok := c.Get("a")
	if !ok || v != "1" {
		t.Fatalf("Expected ('1', true), got (%q, %v)", v, ok)
	}
}

func TestCache_GetMissing(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Expected miss for absent key")
	}
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	c := New(time.Minute).WithClock(func() time.Time { return now })

	c.Set("a", "1")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Expected fresh entry to hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("Expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry removed on read, len %d", c.Len())
	}
}

func TestCache_SetWithTTL(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	c := New(time.Minute).WithClock(func() time.Time { return now })

	c.SetWithTTL("a", "1", time.Hour)
	now = now.Add(30 * time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Expected explicit TTL to override the default")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", "1")
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("Expected deleted key to miss")
	}
}
