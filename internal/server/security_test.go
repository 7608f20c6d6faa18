package server

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock is a manually advanced clock for the limiters.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRateLimiter(t *testing.T, perSecond, perMinute int, ban time.Duration) (*RateLimiter, *stepClock) {
	t.Helper()
	clock := newStepClock()
	rl := NewRateLimiter(perSecond, perMinute, ban)
	rl.now = clock.Now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_SecondLimitBans(t *testing.T) {
	t.Parallel()

	rl, clock := newTestRateLimiter(t, 5, 100, 10*time.Second)
	ip := "127.0.0.1"

	for i := range 5 {
		assert.True(t, rl.Allow(ip), "request %d", i)
	}
	assert.False(t, rl.Allow(ip))
	assert.True(t, rl.IsBanned(ip))

	// still banned just before expiry, even in a fresh second
	clock.Advance(9 * time.Second)
	assert.False(t, rl.Allow(ip))
	assert.True(t, rl.IsBanned(ip))
}

func TestRateLimiter_CountersResetAfterBan(t *testing.T) {
	t.Parallel()

	// minute quota of 3: without a reset the minute counter would still be full after the ban
	rl, clock := newTestRateLimiter(t, 100, 3, 5*time.Second)
	ip := "10.0.0.1"

	for range 3 {
		require.True(t, rl.Allow(ip))
	}
	require.False(t, rl.Allow(ip))

	clock.Advance(5 * time.Second)
	assert.False(t, rl.IsBanned(ip))
	for i := range 3 {
		assert.True(t, rl.Allow(ip), "request %d after ban", i)
	}
	assert.False(t, rl.Allow(ip), "full quota spent again")
	assert.True(t, rl.IsBanned(ip))
}

func TestRateLimiter_SecondWindowRollsOver(t *testing.T) {
	t.Parallel()

	rl, clock := newTestRateLimiter(t, 2, 100, time.Minute)
	ip := "192.168.1.1"

	for range 5 {
		assert.True(t, rl.Allow(ip))
		assert.True(t, rl.Allow(ip))
		clock.Advance(time.Second)
	}
	assert.False(t, rl.IsBanned(ip))
}

func TestRateLimiter_IPsAreIndependent(t *testing.T) {
	t.Parallel()

	rl, _ := newTestRateLimiter(t, 1, 100, time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.False(t, rl.IsBanned("b"))
	assert.False(t, rl.IsBanned("unknown"))
}

func TestRateLimiter_Concurrency(t *testing.T) {
	t.Parallel()

	rl, _ := newTestRateLimiter(t, 20, 200, time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("concurrent") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// the clock never moves, so exactly the per-second quota passes
	assert.Equal(t, 20, allowed)
}

func TestIPFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ip      string
		setup   func(*IPFilter)
		allowed bool
	}{
		{name: "empty filter allows", ip: "192.168.1.1", setup: func(*IPFilter) {}, allowed: true},
		{
			name:    "blacklisted",
			ip:      "192.168.1.2",
			setup:   func(f *IPFilter) { f.AddToBlacklist("192.168.1.2") },
			allowed: false,
		},
		{
			name: "blacklisted and whitelisted is rejected",
			ip:   "10.0.0.2",
			setup: func(f *IPFilter) {
				f.AddToWhitelist("10.0.0.2")
				f.AddToBlacklist("10.0.0.2")
			},
			allowed: false,
		},
		{
			name: "whitelisted then blacklisted then unblocked",
			ip:   "10.0.0.3",
			setup: func(f *IPFilter) {
				f.AddToBlacklist("10.0.0.3")
				f.AddToWhitelist("10.0.0.3")
				f.RemoveFromBlacklist("10.0.0.3")
			},
			allowed: true,
		},
		{
			name:    "whitelist excludes others",
			ip:      "192.168.1.4",
			setup:   func(f *IPFilter) { f.AddToWhitelist("10.0.0.1") },
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := NewIPFilter()
			tt.setup(f)
			assert.Equal(t, tt.allowed, f.IsAllowed(tt.ip))
		})
	}
}

func TestChatRateLimiter_CooldownThenMinuteCap(t *testing.T) {
	t.Parallel()

	clock := newStepClock()
	cl := NewChatRateLimiter(2, 3, 3*time.Second)
	cl.now = clock.Now
	id := "chatter"

	for range 2 {
		allowed, reason := cl.AllowChat(id)
		require.True(t, allowed)
		require.Empty(t, reason)
	}

	allowed, reason := cl.AllowChat(id)
	assert.False(t, allowed)
	assert.Contains(t, reason, "派大星")

	clock.Advance(time.Second)
	allowed, reason = cl.AllowChat(id)
	assert.False(t, allowed)
	assert.Contains(t, reason, "章鱼哥")

	clock.Advance(2 * time.Second)
	allowed, _ = cl.AllowChat(id)
	assert.True(t, allowed, "cooldown over")

	clock.Advance(time.Second)
	allowed, reason = cl.AllowChat(id)
	assert.False(t, allowed, "minute cap of 3 reached")
	assert.Contains(t, reason, "休息")

	clock.Advance(time.Minute)
	allowed, _ = cl.AllowChat(id)
	assert.True(t, allowed, "minute window reset")

	cl.RemoveClient(id)
	allowed, _ = cl.AllowChat(id)
	assert.True(t, allowed)
}

func TestMessageRateLimiter(t *testing.T) {
	t.Parallel()

	clock := newStepClock()
	ml := NewMessageRateLimiter(4)
	ml.now = clock.Now
	id := "client"

	// warning threshold is max/2
	for i := range 4 {
		allowed, warning := ml.AllowMessage(id)
		assert.True(t, allowed)
		assert.Equal(t, i >= 2, warning, "message %d", i)
	}
	allowed, warning := ml.AllowMessage(id)
	assert.False(t, allowed)
	assert.True(t, warning)
	assert.Equal(t, 1, ml.GetWarningCount(id))

	clock.Advance(time.Second)
	allowed, warning = ml.AllowMessage(id)
	assert.True(t, allowed)
	assert.False(t, warning)
	assert.Equal(t, 1, ml.GetWarningCount(id), "warnings survive the window")

	ml.ClearRateLimit(id)
	assert.Zero(t, ml.GetWarningCount(id))
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	oc := NewOriginChecker([]string{"https://Example.com"})
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://example.com", true},
		{"https://EXAMPLE.com", true},
		{"http://example.com", false},
		{"https://evil.com", false},
		{"", true},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "/ws", http.NoBody)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.allowed, oc.Check(req), "origin %q", tt.origin)
	}

	all := NewOriginChecker([]string{"https://a.com", "*"})
	req, _ := http.NewRequest(http.MethodGet, "/ws", http.NoBody)
	req.Header.Set("Origin", "https://b.com")
	assert.True(t, all.Check(req))
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.1:12345", nil, "192.168.1.1"},
		{"remote addr without port", "192.168.1.9", nil, "192.168.1.9"},
		{"forwarded chain keeps first", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"}, "203.0.113.1"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "203.0.113.2"}, "203.0.113.2"},
		{
			"forwarded wins over real ip", "10.0.0.1:1",
			map[string]string{"X-Forwarded-For": "203.0.113.3", "X-Real-IP": "203.0.113.4"}, "203.0.113.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, _ := http.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
