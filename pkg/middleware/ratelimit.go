package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httputil"
)

// visitor tracks a rate limiter per client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-IP token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	trusted  []netip.Prefix
	logger   *slog.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second per IP
// with the given burst. Idle visitors are evicted every ttl until ctx ends.
func NewRateLimiter(ctx context.Context, rps float64, burst int, ttl time.Duration, logger *slog.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
	if ttl > 0 {
		go rl.cleanupLoop(ctx)
	}
	return rl
}

// TrustProxies sets the proxy networks whose X-Forwarded-For and X-Real-IP
// headers are believed. Requests from anywhere else are keyed by their
// connection address. Malformed prefixes are logged and ignored.
func (rl *RateLimiter) TrustProxies(cidrs []string) *RateLimiter {
	rl.trusted = parsePrefixes(cidrs, rl.logger)
	return rl
}

// Middleware returns 429 with a Retry-After hint once a client's bucket is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.trusted)
		res := rl.limiter(ip).ReserveN(rl.now(), 1)
		if !res.OK() {
			rl.reject(w, r, ip, time.Second)
			return
		}
		if delay := res.DelayFrom(rl.now()); delay > 0 {
			res.CancelAt(rl.now())
			rl.reject(w, r, ip, delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, ip string, retryAfter time.Duration) {
	rl.logger.WarnContext(r.Context(), "rate limit exceeded",
		slog.String("ip", ip),
		slog.String("path", r.URL.Path),
	)
	retryAfter = time.Duration(math.Ceil(retryAfter.Seconds())) * time.Second
	httputil.WriteError(w, r, apperrors.TooManyRequests("too many requests, try again later", retryAfter), rl.logger)
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup evicts visitors not seen within the TTL.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// clientIP returns the address a request is keyed by. Forwarding headers
// count only when the connection comes from a trusted proxy: the nearest
// X-Forwarded-For hop outside the trusted networks wins, then X-Real-IP.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	remote, ok := remoteAddr(r)
	if !ok {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
	if !containsAddr(trusted, remote) {
		return remote.String()
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	var outermost netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		addr = addr.Unmap()
		if !containsAddr(trusted, addr) {
			return addr.String()
		}
		outermost = addr
	}
	if outermost.IsValid() {
		return outermost.String()
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return remote.String()
}
