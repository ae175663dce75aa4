package cache

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}

	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("overwritten value = %q, want 2", v)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Duration
		advance  time.Duration
		wantHit  bool
	}{
		{"ttl only, fresh", 0, 30 * time.Second, true},
		{"ttl only, expired", 0, time.Minute, false},
		{"deadline before ttl", 10 * time.Second, 15 * time.Second, false},
		{"deadline after ttl is capped", time.Hour, 2 * time.Minute, false},
		{"deadline in the past is not stored", -time.Second, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk := newTestCache(4, time.Minute)
			var deadline time.Time
			if tt.deadline != 0 {
				deadline = clk.t.Add(tt.deadline)
			}
			c.SetUntil("k", "v", deadline)
			clk.t = clk.t.Add(tt.advance)

			if _, ok := c.Get("k"); ok != tt.wantHit {
				t.Errorf("Get hit = %v, want %v", ok, tt.wantHit)
			}
		})
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clk := newTestCache(4, time.Minute)
	c.Set("a", "1")
	c.SetUntil("b", "2", clk.t.Add(5*time.Second))
	clk.t = clk.t.Add(10 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Delete("a")
	if c.Size() != 0 {
		t.Errorf("Size() after Delete = %d, want 0", c.Size())
	}
}

func TestJanitor(t *testing.T) {
	c, clk := newTestCache(4, time.Minute)
	c.Set("a", "1")
	j := NewJanitor(c)
	clk.t = clk.t.Add(2 * time.Minute)

	if n := j.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx, time.Millisecond); err != nil {
		t.Errorf("Run on cancelled context = %v, want nil", err)
	}
}
