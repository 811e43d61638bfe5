package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hbotberlin/reservations/internal/http/response"
)

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int                          // Max requests per window
	Window   time.Duration                // Time window duration
	KeyFunc  func(r *http.Request) string // Function to generate the rate limit key
	SkipFunc func(r *http.Request) bool   // Function to skip rate limiting
}

// RateLimiter provides fixed-window rate limiting backed by an in-process
// bucket map. Windows do not slide, so bursts across a window boundary are
// possible; that tradeoff is intentional.
type RateLimiter struct {
	store  *MemoryStore
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		store:  NewMemoryStore(config.Window),
		config: config,
	}
}

// Store exposes the bucket store so the owner can start its janitor.
func (rl *RateLimiter) Store() *MemoryStore {
	return rl.store
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.config.SkipFunc != nil && rl.config.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := rl.config.KeyFunc(r)
			if !rl.store.Allow(key, rl.config.Requests) {
				response.RateLimited(w, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type bucket struct {
	windowStart time.Time
	count       int
}

// MemoryStore counts accepted requests per key within a fixed window.
type MemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	return &MemoryStore{
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it stays within
// limit. The first request of a fresh or expired window resets the count.
func (s *MemoryStore) Allow(key string, limit int) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || now.Sub(b.windowStart) > s.window {
		s.buckets[key] = &bucket{windowStart: now, count: 1}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// Cleanup drops every bucket whose window has expired so the map stays
// bounded under sustained unique-address traffic.
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.buckets {
		if now.Sub(b.windowStart) > s.window {
			delete(s.buckets, key)
		}
	}
}

// Len reports the number of live buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// StartJanitor evicts expired buckets periodically until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// ClientIP resolves the source address of a request arriving through layered
// proxies and CDNs. Header order is a deployment decision, not an
// authenticated identity.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			xff = xff[:idx]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}

	if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}

	if fly := strings.TrimSpace(r.Header.Get("Fly-Client-IP")); fly != "" {
		return fly
	}

	return "0.0.0.0"
}
