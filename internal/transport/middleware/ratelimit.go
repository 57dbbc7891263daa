package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

// idleBucketTTL is how long an unused bucket is kept.
const idleBucketTTL = 10 * time.Minute

// RateLimiter implements token bucket rate limiting keyed by the
// authenticated user, or by client IP for anonymous requests.
type RateLimiter struct {
	clock   clockwork.Clock
	buckets sync.Map // map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter with background cleanup.
// Call Stop() on shutdown.
func NewRateLimiter(clock clockwork.Clock, cleanupInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{clock: clock, stop: make(chan struct{})}
	go rl.cleanup(cleanupInterval)
	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Limit returns middleware that allows maxPerMinute requests per key.
func (rl *RateLimiter) Limit(maxPerMinute int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b := rl.getBucket(limitKey(r), maxPerMinute)
			if !b.allow(rl.clock.Now()) {
				retryAfter := 60.0 / float64(maxPerMinute)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)+1))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	if userID, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) getBucket(key string, maxPerMinute int) *bucket {
	maxTokens := float64(maxPerMinute)

	val, _ := rl.buckets.LoadOrStore(key, &bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: maxTokens / 60.0,
		lastRefill: rl.clock.Now(),
	})

	return val.(*bucket)
}

func (b *bucket) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := rl.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.Chan():
			rl.evictIdle(rl.clock.Now())
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastRefill)
		b.mu.Unlock()
		if idle > idleBucketTTL {
			rl.buckets.Delete(key)
		}
		return true
	})
}
