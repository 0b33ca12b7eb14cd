package cache

import (
	"regexp"
	"testing"
	"time"
)

func fixedClock(t *testing.T, start time.Time) *time.Time {
	t.Helper()
	now := start
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
	return &now
}

func TestGet_FreshValue(t *testing.T) {
	fixedClock(t, time.Unix(1000, 0))
	c := New()
	c.Set("k", 42)

	v, ok := c.Get("k", time.Second)
	if !ok {
		t.Fatal("expected hit")
	}
	if v.(int) != 42 {
		t.Errorf("value = %v, want 42", v)
	}
}

func TestGet_Expired(t *testing.T) {
	now := fixedClock(t, time.Unix(1000, 0))
	c := New()
	c.Set("k", "v")

	*now = now.Add(3 * time.Second)
	if _, ok := c.Get("k", 2*time.Second); ok {
		t.Error("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", c.Len())
	}
}

func TestGet_ZeroTTLUsesDefault(t *testing.T) {
	now := fixedClock(t, time.Unix(1000, 0))
	c := New()
	c.Set("k", "v")

	*now = now.Add(4 * time.Second)
	if _, ok := c.Get("k", 0); !ok {
		t.Error("expected hit within default ttl")
	}
	*now = now.Add(2 * time.Second)
	if _, ok := c.Get("k", 0); ok {
		t.Error("expected miss past default ttl")
	}
}

func TestInvalidateMatching(t *testing.T) {
	c := New()
	c.Set("skill:a", 1)
	c.Set("skill:b", 2)
	c.Set("config", 3)

	c.InvalidateMatching(regexp.MustCompile(`^skill:`))

	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
	if _, ok := c.Get("config", time.Minute); !ok {
		t.Error("config should survive")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a", time.Minute); ok {
		t.Error("a should be gone")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len after Clear = %d", c.Len())
	}
}
