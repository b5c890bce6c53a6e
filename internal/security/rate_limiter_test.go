package security

import (
	"testing"
	"time"

	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/stretchr/testify/assert"
)

func newLimiter(cfg config.RateLimitConfig, clock *time.Time) *RateLimiter {
	r := NewRateLimiter(cfg)
	r.now = func() time.Time { return *clock }
	return r
}

func TestRateLimiterDeniesAfterBurst(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 3, IdleTTL: time.Minute}, &clock)

	for i := 0; i < 3; i++ {
		assert.True(t, r.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, r.Allow("10.0.0.1"))
	assert.True(t, r.Allow("10.0.0.2"), "buckets are per client")

	clock = clock.Add(time.Second)
	assert.True(t, r.Allow("10.0.0.1"), "one token refilled")
	assert.False(t, r.Allow("10.0.0.1"))
}

func TestRateLimiterDisabled(t *testing.T) {
	clock := time.Now()
	r := newLimiter(config.RateLimitConfig{Enabled: false, Burst: 1}, &clock)
	for i := 0; i < 10; i++ {
		assert.True(t, r.Allow("10.0.0.1"))
	}
	assert.Equal(t, 0, r.Tracked())
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 5, IdleTTL: time.Minute}, &clock)

	r.Allow("a")
	clock = clock.Add(45 * time.Second)
	r.Allow("b")
	clock = clock.Add(30 * time.Second)

	assert.Equal(t, 1, r.CleanupIdleBuckets())
	assert.Equal(t, 1, r.Tracked())
}
