package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// MaxBytes caps request bodies. Reads past the limit fail with *http.MaxBytesError.
func MaxBytes(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is an in-memory token bucket per client IP.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	visitors sync.Map // 🛡️ Thread-safe Map for high-concurrency scaling
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// NewRateLimiter starts a limiter whose idle-visitor sweeper stops when ctx is done.
func NewRateLimiter(ctx context.Context, rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 3 * time.Minute,
	}
	go rl.cleanupVisitors(ctx)
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message": "Rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	v, ok := rl.visitors.Load(key)
	if !ok {
		v, _ = rl.visitors.LoadOrStore(key, &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(time.Now().UnixNano())
	return vis.limiter.Allow()
}

func (rl *RateLimiter) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.idleTTL).UnixNano()
			rl.visitors.Range(func(key, value any) bool {
				if value.(*visitor).lastSeen.Load() < cutoff {
					rl.visitors.Delete(key)
				}
				return true
			})
		}
	}
}

// clientIP strips the port; chi's RealIP has already applied X-Real-IP / X-Forwarded-For.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
