package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, rps float64, burst int) *RateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	var buf bytes.Buffer
	return NewRateLimiter(ctx, rps, burst, 0, newTestLogger(&buf))
}

func postQuote(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_WithinBurst_Pass(t *testing.T) {
	h := newTestLimiter(t, 1, 5).Middleware(okHandler)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, postQuote(h, "192.168.1.1:12345").Code, "request %d", i+1)
	}
}

func TestRateLimit_ExceedingBurst_Returns429WithRetryAfter(t *testing.T) {
	h := newTestLimiter(t, 0.5, 2).Middleware(okHandler)

	postQuote(h, "10.0.0.1:1")
	postQuote(h, "10.0.0.1:1")
	rr := postQuote(h, "10.0.0.1:1")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))
}

func TestRateLimit_RejectedRequestDoesNotConsumeToken(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, postQuote(h, "10.0.0.9:1").Code)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusTooManyRequests, postQuote(h, "10.0.0.9:1").Code)
	}

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, postQuote(h, "10.0.0.9:1").Code)
}

func TestRateLimit_DifferentIPs_IndependentLimits(t *testing.T) {
	h := newTestLimiter(t, 0.1, 1).Middleware(okHandler)

	assert.Equal(t, http.StatusOK, postQuote(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, postQuote(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, postQuote(h, "10.0.0.2:1").Code)
}

func TestRateLimit_CleanupEvictsIdleVisitors(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	rl.ttl = time.Minute
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	now = now.Add(30 * time.Second)
	rl.limiter("10.0.0.2")
	now = now.Add(45 * time.Second)

	rl.cleanup()
	assert.Equal(t, 1, rl.len())
}

func TestRateLimit_SpoofedForwardedForIsIgnored(t *testing.T) {
	h := newTestLimiter(t, 0.1, 1).TrustProxies([]string{"10.0.0.0/8"}).Middleware(okHandler)

	post := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, post("203.0.113.7:5555", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7:5555", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7:5555", "198.51.100.3, 10.0.0.1"))

	// Behind the trusted proxy each forwarded client has its own bucket.
	assert.Equal(t, http.StatusOK, post("10.0.0.1:80", "198.51.100.4"))
	assert.Equal(t, http.StatusOK, post("10.0.0.1:80", "198.51.100.5"))
	assert.Equal(t, http.StatusTooManyRequests, post("10.0.0.1:80", "198.51.100.4"))
}

func TestClientIP(t *testing.T) {
	var buf bytes.Buffer
	trusted := parsePrefixes([]string{"10.0.0.0/8", "bogus"}, newTestLogger(&buf))
	assert.Contains(t, buf.String(), "ignoring invalid CIDR")

	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "203.0.113.5:4000", "203.0.113.5"},
		{"untrusted forwarded for is ignored", "198.51.100.7", "", "203.0.113.9:1", "203.0.113.9"},
		{"untrusted real ip is ignored", "", "198.51.100.8", "203.0.113.9:1", "203.0.113.9"},
		{"nearest untrusted hop", "198.51.100.7, 10.0.0.1", "", "10.0.0.1:80", "198.51.100.7"},
		{"client supplied prefix is skipped", "6.6.6.6, 198.51.100.7", "", "10.0.0.1:80", "198.51.100.7"},
		{"only trusted hops", "10.0.0.5", "", "10.0.0.1:80", "10.0.0.5"},
		{"real ip from trusted proxy", "", "198.51.100.8", "10.0.0.1:80", "198.51.100.8"},
		{"garbage forwarded falls through", "not-an-ip", "", "10.0.0.3:1", "10.0.0.3"},
		{"remote without port", "", "", "203.0.113.10", "203.0.113.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(req, trusted))
		})
	}
}
