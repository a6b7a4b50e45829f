package httpx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateLimiterExpiry     = 5 * time.Minute
	rateLimiterPruneAbove = 1024
)

// RateLimiterConfig configures per-key token buckets.
type RateLimiterConfig struct {
	// Rate is the sustained number of requests per second.
	Rate float64
	// Burst is the bucket size.
	Burst int
	Clock clockwork.Clock
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per caller key. Buckets unused for
// five minutes are dropped.
type RateLimiter struct {
	limit rate.Limit
	burst int
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewRateLimiter creates a RateLimiter. A non-positive rate disables limiting.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.Rate),
		burst:   burst,
		clock:   clock,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow consumes a token for key.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) > rateLimiterPruneAbove {
		l.pruneLocked(now)
	}
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > rateLimiterExpiry {
			delete(l.entries, k)
		}
	}
}

// Middleware rejects requests over the limit with 429. Requests are keyed by
// client id when one is attached, otherwise by remote address.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(rateKey(r)) {
			WriteError(w, ErrorParams{Code: http.StatusTooManyRequests, Message: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateKey(r *http.Request) string {
	if c, ok := GetClientFromContext(r.Context()); ok {
		return "client:" + c.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
