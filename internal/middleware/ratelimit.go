package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type bucket struct {
	count    int
	lastSeen time.Time
}

// RateLimiter is a fixed-window in-memory limiter. Authenticated requests
// are keyed by user so one office NAT does not starve everyone behind it;
// anonymous requests fall back to the remote address.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if time.Since(b.lastSeen) > window {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

func clientKey(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID > 0 {
		return fmt.Sprintf("u:%d", userID)
	}
	return "ip:" + r.RemoteAddr
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		rl.mu.Lock()
		b, exists := rl.buckets[key]
		if !exists || time.Since(b.lastSeen) > rl.window {
			rl.buckets[key] = &bucket{count: 1, lastSeen: time.Now()}
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}

		b.count++
		b.lastSeen = time.Now()
		count := b.count
		rl.mu.Unlock()

		if count > rl.limit {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
