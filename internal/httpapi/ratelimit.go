package httpapi

import (
	"sync"
	"time"
)

const (
	DefaultLeadRateLimit  = 6
	DefaultLeadRateWindow = 30 * time.Second

	rateLimiterPruneThreshold = 1024
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window counter keyed by client address.
type RateLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mutex   sync.Mutex
	windows map[string]*rateWindow
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultLeadRateLimit
	}
	if window <= 0 {
		window = DefaultLeadRateWindow
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
}

// Allow records one request for key and reports whether it fits in the current window.
func (limiter *RateLimiter) Allow(key string) bool {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	now := limiter.now()
	if len(limiter.windows) >= rateLimiterPruneThreshold {
		limiter.prune(now)
	}

	current, exists := limiter.windows[key]
	if !exists || now.Sub(current.start) >= limiter.window {
		limiter.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}
	if current.count >= limiter.limit {
		return false
	}
	current.count++
	return true
}

func (limiter *RateLimiter) prune(now time.Time) {
	for key, current := range limiter.windows {
		if now.Sub(current.start) >= limiter.window {
			delete(limiter.windows, key)
		}
	}
}
