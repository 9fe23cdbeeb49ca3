package notifier

import (
	"sync"
	"time"
)

// RateLimiter is a sliding window limiter with one window per key.
type RateLimiter struct {
	mu           sync.Mutex
	maxPerWindow int
	window       time.Duration
	buckets      map[string][]time.Time
	dropped      int64
	enabled      bool
	now          func() time.Time
}

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	MaxPerWindow int           // Notifications per key per window (default: 3)
	Window       time.Duration // Window length (default: 15 minutes)
	Enabled      bool
}

// DefaultRateLimitConfig returns default rate limit settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerWindow: 3,
		Window:       15 * time.Minute,
		Enabled:      true,
	}
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = 3
	}
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}

	return &RateLimiter{
		maxPerWindow: config.MaxPerWindow,
		window:       config.Window,
		buckets:      make(map[string][]time.Time),
		enabled:      config.Enabled,
		now:          time.Now,
	}
}

// Allow reports whether another notification for key fits in the window,
// and records it if so.
func (r *RateLimiter) Allow(key string) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stamps := prune(r.buckets[key], now.Add(-r.window))

	if len(stamps) >= r.maxPerWindow {
		r.buckets[key] = stamps
		r.dropped++
		return false
	}

	r.buckets[key] = append(stamps, now)
	return true
}

// Release refunds the most recent slot taken for key.
func (r *RateLimiter) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamps := r.buckets[key]
	if len(stamps) == 0 {
		return
	}
	if len(stamps) == 1 {
		delete(r.buckets, key)
		return
	}
	r.buckets[key] = stamps[:len(stamps)-1]
}

// prune drops timestamps before cutoff. Stamps are in ascending order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && stamps[idx].Before(cutoff) {
		idx++
	}
	return stamps[idx:]
}

// Stats returns rate limiter statistics.
func (r *RateLimiter) Stats() RateLimitStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	for _, stamps := range r.buckets {
		current += len(stamps)
	}
	return RateLimitStats{
		Dropped:      r.dropped,
		CurrentCount: current,
		Keys:         len(r.buckets),
		MaxPerWindow: r.maxPerWindow,
		Window:       r.window,
		Enabled:      r.enabled,
	}
}

// RateLimitStats contains rate limiter statistics.
type RateLimitStats struct {
	Dropped      int64
	CurrentCount int // Slots taken across all keys
	Keys         int
	MaxPerWindow int
	Window       time.Duration
	Enabled      bool
}
