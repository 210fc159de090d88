package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket_TakeAndRefill(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now()) // 10 tokens, 1 token per second

	for i := 0; i < 10; i++ {
		if ok, _, _ := bucket.take(clock.Now()); !ok {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}
	if ok, remaining, _ := bucket.take(clock.Now()); ok || remaining != 0 {
		t.Errorf("Expected 11th request to be denied with 0 remaining, got ok=%v remaining=%d", ok, remaining)
	}

	clock.Advance(1100 * time.Millisecond)
	if ok, _, _ := bucket.take(clock.Now()); !ok {
		t.Error("Expected request to be allowed after refill")
	}
	if ok, _, _ := bucket.take(clock.Now()); ok {
		t.Error("Expected request to be denied after consuming refilled token")
	}
}

func TestTokenBucket_ResetTime(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now())

	for i := 0; i < 4; i++ {
		bucket.take(clock.Now())
	}
	_, remaining, reset := bucket.take(clock.Now())
	if remaining != 5 {
		t.Errorf("Expected 5 remaining tokens, got %d", remaining)
	}
	if want := clock.Now().Add(5 * time.Second); !reset.Equal(want) {
		t.Errorf("Expected reset at %v, got %v", want, reset)
	}
}

func TestLimiter_Allow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute}, WithClock(clock.Now))
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/sessions/abc", "GET")
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if info.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", info.Limit)
		}
		if info.Remaining != 9-i {
			t.Errorf("Expected remaining %d, got %d", 9-i, info.Remaining)
		}
	}

	allowed, info := limiter.Allow("127.0.0.1", "/sessions/abc", "GET")
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if info.RetryAfter < 5900*time.Millisecond || info.RetryAfter > 6100*time.Millisecond {
		t.Errorf("Expected retry after about 6s, got %v", info.RetryAfter)
	}
}

func TestLimiter_UnmatchedPathsShareBucket(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute}, WithClock(clock.Now))
	defer limiter.Stop()

	limiter.Allow("10.0.0.1", "/sessions/one", "GET")
	limiter.Allow("10.0.0.1", "/sessions/two", "GET")
	if allowed, _ := limiter.Allow("10.0.0.1", "/sessions/three", "GET"); allowed {
		t.Error("Expected per-session URLs to share the default bucket")
	}
	if allowed, _ := limiter.Allow("10.0.0.2", "/sessions/one", "GET"); !allowed {
		t.Error("Expected another client to have its own bucket")
	}
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		if allowed, info := limiter.Allow("127.0.0.1", "/sessions", "POST"); !allowed || info.Limit != 0 {
			t.Fatalf("Expected whitelisted request %d to be allowed without a limit", i+1)
		}
	}
	if allowed, _ := limiter.Allow("192.168.1.1", "/health", "GET"); allowed {
		t.Error("Expected blacklisted request to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		if allowed, _ := limiter.Allow("127.0.0.1", "/sessions", "POST"); !allowed {
			t.Fatalf("Expected request %d to be allowed when disabled", i+1)
		}
	}
}

func TestLimiter_UnlimitedRoutes(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for _, path := range []string{"/health", "/metrics"} {
		for i := 0; i < 5; i++ {
			if allowed, _ := limiter.Allow("127.0.0.1", path, "GET"); !allowed {
				t.Fatalf("Expected %s to be unlimited", path)
			}
		}
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(60, 4),
	}, WithClock(clock.Now))
	defer limiter.Stop()

	// POST /sessions: limit 15/min, burst 2
	for i := 0; i < 2; i++ {
		if allowed, info := limiter.Allow("127.0.0.1", "/sessions", "POST"); !allowed || info.Limit != 15 {
			t.Errorf("Expected turn request %d to be allowed with limit 15, got %v %d", i+1, allowed, info.Limit)
		}
	}
	if allowed, _ := limiter.Allow("127.0.0.1", "/sessions", "POST"); allowed {
		t.Error("Expected third turn request to be denied")
	}

	// Streaming turns have their own bucket
	if allowed, _ := limiter.Allow("127.0.0.1", "/sessions/stream", "POST"); !allowed {
		t.Error("Expected stream request to be allowed")
	}

	// Cancel and select share the prefix bucket
	for i := 0; i < 4; i++ {
		path := fmt.Sprintf("/sessions/%d/cancel", i)
		if allowed, info := limiter.Allow("127.0.0.1", path, "POST"); !allowed || info.Limit != 30 {
			t.Errorf("Expected %s to be allowed with limit 30", path)
		}
	}
	if allowed, _ := limiter.Allow("127.0.0.1", "/sessions/9/select", "POST"); allowed {
		t.Error("Expected prefix bucket to be exhausted")
	}

	// Reads fall through to the default
	if allowed, info := limiter.Allow("127.0.0.1", "/sessions/9", "GET"); !allowed || info.Limit != 1000 {
		t.Errorf("Expected default limit 1000, got %d", info.Limit)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow("127.0.0.1", "/test", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedCount != 100 {
		t.Errorf("Expected 100 allowed requests, got %d", allowedCount)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleExpiry:    time.Hour,
	}, WithClock(clock.Now))
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/test", "GET")
	}
	clock.Advance(45 * time.Minute)
	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/test", "GET")
	}
	clock.Advance(30 * time.Minute)

	if removed := limiter.sweep(); removed != 5 {
		t.Errorf("Expected 5 idle buckets removed, got %d", removed)
	}
	if len(limiter.buckets) != 5 {
		t.Errorf("Expected 5 buckets left, got %d", len(limiter.buckets))
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: time.Minute})
	limiter.Stop()
	limiter.Stop()
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
	if !allowed {
		t.Error("Expected request to be allowed with default config")
	}
	if info.Limit != 300 {
		t.Errorf("Expected default limit 300, got %d", info.Limit)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2,")
	t.Setenv("RATE_LIMIT_BLACKLIST", "")

	cfg := LoadConfig(5, 10)
	if !cfg.Enabled {
		t.Fatal("Expected limiter enabled")
	}
	if cfg.DefaultLimit != 300 || cfg.DefaultBurst != 10 {
		t.Errorf("Expected 300/min burst 10, got %d/min burst %d", cfg.DefaultLimit, cfg.DefaultBurst)
	}
	if len(cfg.Whitelist) != 2 || !cfg.Whitelist["10.0.0.2"] {
		t.Errorf("Unexpected whitelist %v", cfg.Whitelist)
	}
	if len(cfg.EndpointConfigs) != 3 {
		t.Errorf("Expected 3 endpoint configs, got %d", len(cfg.EndpointConfigs))
	}

	if LoadConfig(0, 10).Enabled {
		t.Error("Expected zero rate to disable limiting")
	}

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	if LoadConfig(5, 10).Enabled {
		t.Error("Expected RATE_LIMIT_ENABLED=false to disable limiting")
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/sessions", Method: "POST", Limit: 1},
		{Path: "/sessions/", Method: "POST", Limit: 2},
		{Path: "/sessions/admin/", Method: "POST", Limit: 3},
	}

	tests := []struct {
		path, method string
		want         int // -1 for no match
	}{
		{"/sessions", "POST", 1},
		{"/sessions/abc/cancel", "POST", 2},
		{"/sessions/admin/purge", "POST", 3},
		{"/sessions/abc", "GET", -1},
		{"/health", "GET", 0},
		{"/metrics", "GET", 0},
		{"/other", "POST", -1},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want == -1 {
				if got != nil {
					t.Errorf("Expected no match, got %+v", got)
				}
				return
			}
			if got == nil || got.Limit != tt.want {
				t.Errorf("Expected limit %d, got %+v", tt.want, got)
			}
		})
	}
}
