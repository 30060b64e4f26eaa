package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/metrics"
)

// WindowCounter counts hits per key inside fixed windows of length per.
// Incr returns the count including the current hit.
type WindowCounter interface {
	Incr(ctx context.Context, key string, per time.Duration) (int64, error)
}

type bucket struct {
	count int64
	until time.Time
}

// MemoryCounter is a process-local WindowCounter.
type MemoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{buckets: make(map[string]*bucket), now: time.Now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, per time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	b, ok := c.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{until: now.Add(per)}
		c.buckets[key] = b
		c.sweep(now)
	}
	b.count++
	return b.count, nil
}

// sweep drops expired buckets so idle clients do not accumulate.
func (c *MemoryCounter) sweep(now time.Time) {
	for k, b := range c.buckets {
		if now.After(b.until) {
			delete(c.buckets, k)
		}
	}
}

// RateLimit is a coarse per-IP request limiter in front of the per-user
// quotas. Counter failures let the request through.
func RateLimit(counter WindowCounter, limit int, per time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIPForRateLimit(r)
			n, err := counter.Incr(r.Context(), "ratelimit:"+ip, per)
			if err != nil {
				logger.Warn().Err(err).Str("ip", ip).Msg("rate limit counter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(limit) {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", retryAfter(per))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(per time.Duration) string {
	secs := int(per / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
