package security

import (
	"context"
	"sync"
	"time"

	"github.com/raaihank/jsonnymous/internal/config"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP with one token bucket each
type RateLimiter struct {
	config  config.RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.Enabled {
		return true
	}

	now := r.now()
	b := r.getBucket(clientIP)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Tracked returns the number of client buckets currently held
func (r *RateLimiter) Tracked() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}

// getBucket gets or creates the bucket for a client IP
func (r *RateLimiter) getBucket(clientIP string) *bucket {
	r.mu.RLock()
	b, exists := r.buckets[clientIP]
	r.mu.RUnlock()

	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists := r.buckets[clientIP]; exists {
		return b
	}

	b = &bucket{
		limiter:  rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond), r.config.Burst),
		lastSeen: r.now(),
	}
	r.buckets[clientIP] = b
	return b
}

// CleanupIdleBuckets removes buckets not used within the idle TTL
func (r *RateLimiter) CleanupIdleBuckets() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.config.IdleTTL)
	removed := 0
	for ip, b := range r.buckets {
		b.mu.Lock()
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, ip)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// StartCleanupRoutine prunes idle buckets until ctx is cancelled
func (r *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	interval := r.config.IdleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.CleanupIdleBuckets()
			}
		}
	}()
}
