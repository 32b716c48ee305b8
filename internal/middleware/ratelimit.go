// ABOUTME: Fixed-window rate limiting for the packing endpoints
// ABOUTME: Counts requests per client IP and answers 429 with Retry-After when over limit

package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

type window struct {
	count     int
	expiresAt time.Time
}

// RateLimiter allows limit requests per key in each window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	created int
	now     func() time.Time
}

// NewRateLimiter creates a limiter for limit requests per period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed, and if not, how long until its
// window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		rl.windows[key] = &window{count: 1, expiresAt: now.Add(rl.period)}
		// Drop expired windows every 100 new ones.
		if rl.created++; rl.created >= 100 {
			for k, w := range rl.windows {
				if !now.Before(w.expiresAt) {
					delete(rl.windows, k)
				}
			}
			rl.created = 0
		}
		return true, 0
	}

	if w.count < rl.limit {
		w.count++
		return true, 0
	}
	return false, w.expiresAt.Sub(now)
}

// ClientIP keys requests by remote address without the port.
func ClientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// RateLimit enforces limiter per ClientIP. A nil limiter disables it.
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next(w, r)
				return
			}

			key := ClientIP(r)
			allowed, retryAfter := limiter.Allow(key)
			if allowed {
				next(w, r)
				return
			}

			seconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("Rate limit exceeded", "client", key, "path", sanitizePath(r.URL.Path), "retry_after", seconds)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
			writeJSONError(w, "Rate limit exceeded", http.StatusTooManyRequests)
		}
	}
}
