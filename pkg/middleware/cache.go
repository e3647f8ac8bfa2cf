package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl makes successful GET and HEAD responses publicly cacheable. A
// positive staleWhileRevalidate lets shared caches serve the old copy while
// they refetch. Only 2xx and 304 responses get the public policy, and only
// when the handler has not chosen one itself; every other status is sent
// with no-store.
func CacheControl(maxAge, staleWhileRevalidate int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	if staleWhileRevalidate > 0 {
		value += fmt.Sprintf(", stale-while-revalidate=%d", staleWhileRevalidate)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			rec := newStatusRecorder(w)
			rec.beforeHeader = func(status int) {
				h := w.Header()
				switch {
				case !cacheableStatus(status):
					h.Set("Cache-Control", "no-store")
				case h.Get("Cache-Control") == "":
					h.Set("Cache-Control", value)
				}
			}
			next.ServeHTTP(rec, r)
		})
	}
}

func cacheableStatus(status int) bool {
	return status/100 == 2 || status == http.StatusNotModified
}

// NoStore marks responses as uncacheable.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Vary adds the given request headers to the Vary response header so shared
// caches key responses on them.
func Vary(headers ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				w.Header().Add("Vary", h)
			}
			next.ServeHTTP(w, r)
		})
	}
}
