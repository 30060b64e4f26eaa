package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{name: "single ip", header: "203.0.113.1", remoteAddr: "198.51.100.10:1234", want: "203.0.113.1"},
		{name: "multiple ips use first", header: " 203.0.113.1 , 198.51.100.2 ", remoteAddr: "198.51.100.10:1234", want: "203.0.113.1"},
		{name: "invalid forwarded falls back", header: "invalid", remoteAddr: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "ipv6 forwarded", header: "2001:db8::1", remoteAddr: net.JoinHostPort("2001:db8::2", "443"), want: "2001:db8::1"},
		{name: "ipv6 remote fallback", header: "invalid", remoteAddr: net.JoinHostPort("2001:db8::2", "443"), want: "2001:db8::2"},
		{name: "remote without port", remoteAddr: "203.0.113.1", want: "203.0.113.1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMemoryCounterWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		got, _ := c.Incr(context.Background(), "k", time.Minute)
		if got != want {
			t.Fatalf("Incr() = %d, want %d", got, want)
		}
	}
	now = now.Add(2 * time.Minute)
	if got, _ := c.Incr(context.Background(), "k", time.Minute); got != 1 {
		t.Fatalf("Incr() after window = %d, want 1", got)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	h := RateLimit(NewMemoryCounter(), 2, time.Minute, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "203.0.113.10:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", rr.Code)
	}
}

type brokenCounter struct{}

func (brokenCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(brokenCounter{}, 1, time.Minute, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
