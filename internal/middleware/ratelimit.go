package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	onLimited func(r *http.Request)
	now       func() time.Time
	proxies   *TrustedProxies
}

type RateLimitOption func(*RateLimiter)

// WithOnLimited registers a callback for every rejected request.
func WithOnLimited(fn func(r *http.Request)) RateLimitOption {
	return func(rl *RateLimiter) { rl.onLimited = fn }
}

// WithTrustedProxies keys buckets on the forwarded client address for
// requests relayed by one of the given proxies. Without it every bucket is
// keyed on the connection's remote address.
func WithTrustedProxies(t *TrustedProxies) RateLimitOption {
	return func(rl *RateLimiter) { rl.proxies = t }
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) RateLimitOption {
	return func(rl *RateLimiter) { rl.now = now }
}

func NewRateLimiter(requestsPerSecond float64, burst int, ttl time.Duration, opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Middleware answers 429 with Retry-After once a client's bucket is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.proxies.ClientIP(r)) {
			if rl.onLimited != nil {
				rl.onLimited(r)
			}
			w.Header().Set("Retry-After", rl.retryAfter())
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter is the time, in whole seconds, until one token is back.
func (rl *RateLimiter) retryAfter() string {
	if rl.limit <= 0 {
		return "1"
	}
	secs := int(math.Ceil(1 / float64(rl.limit)))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Clients returns the number of tracked buckets.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Sweep drops buckets idle for longer than the TTL and returns how many
// remain.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.ttl {
			delete(rl.limiters, key)
		}
	}
	return len(rl.limiters)
}

// StartCleanup sweeps once per TTL until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	if rl.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(rl.ttl)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}
