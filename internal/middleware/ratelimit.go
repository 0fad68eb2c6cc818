package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements a per-client token bucket.
type RateLimiter struct {
	mu          sync.RWMutex
	clients     map[string]*clientBucket
	rate        int           // requests per window
	window      time.Duration // time window
	cleanupTick *time.Ticker
	stopCleanup chan struct{}
}

type clientBucket struct {
	mu         sync.Mutex
	tokens     int
	lastUpdate time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per window.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*clientBucket),
		rate:        rate,
		window:      window,
		cleanupTick: time.NewTicker(5 * time.Minute),
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// cleanup periodically drops buckets that have been idle for over an hour.
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			now := time.Now()
			rl.mu.Lock()
			for key, bucket := range rl.clients {
				bucket.mu.Lock()
				idle := now.Sub(bucket.lastUpdate) > time.Hour
				bucket.mu.Unlock()
				if idle {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.cleanupTick.Stop()
	close(rl.stopCleanup)
}

// Allow checks whether a request from the given key should pass.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.RLock()
	bucket, exists := rl.clients[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		bucket, exists = rl.clients[key]
		if !exists {
			bucket = &clientBucket{
				tokens:     rl.rate,
				lastUpdate: time.Now(),
			}
			rl.clients[key] = bucket
		}
		rl.mu.Unlock()
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastUpdate)

	if elapsed >= rl.window {
		bucket.tokens = rl.rate
		bucket.lastUpdate = now
	} else {
		refill := int(float64(rl.rate) * elapsed.Seconds() / rl.window.Seconds())
		if refill > 0 {
			bucket.tokens = min(bucket.tokens+refill, rl.rate)
			bucket.lastUpdate = now
		}
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// ClientKey extracts a client identifier from the request, preferring
// proxy-supplied headers over RemoteAddr.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// RateLimit creates a middleware that rejects over-limit requests with 429.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
