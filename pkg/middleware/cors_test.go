package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func corsRequest(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/search", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	rr := httptest.NewRecorder()
	CORS(cfg)(okHandler).ServeHTTP(rr, req)
	return rr
}

func TestCORS_DevMode_AllowsWildcard(t *testing.T) {
	rr := corsRequest(DefaultCORSConfig(), http.MethodGet, "http://localhost:3000")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProdMode_AllowedOrigin(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://brandcaps.com.ar"}, Environment: "production"}
	rr := corsRequest(cfg, http.MethodGet, "https://brandcaps.com.ar")

	assert.Equal(t, "https://brandcaps.com.ar", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
}

func TestCORS_ProdMode_RejectedOrigin(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://brandcaps.com.ar"}, Environment: "production"}
	rr := corsRequest(cfg, http.MethodGet, "https://evil.example")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProdMode_IgnoresWildcard(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"*"}, Environment: "production"}
	rr := corsRequest(cfg, http.MethodGet, "https://anyone.example")

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_StagingWildcardInList_AllowsAll(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"*"}, Environment: "staging"}
	rr := corsRequest(cfg, http.MethodGet, "https://preview.example")

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardWithCredentials_EchoesOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true
	rr := corsRequest(cfg, http.MethodGet, "http://localhost:3000")

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight_Returns204(t *testing.T) {
	rr := corsRequest(DefaultCORSConfig(), http.MethodOptions, "http://localhost:3000")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_Defaults_CoverStorefrontHeaders(t *testing.T) {
	rr := corsRequest(CORSConfig{Environment: "development"}, http.MethodGet, "")

	assert.Equal(t, "GET, HEAD, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "If-None-Match")
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), SessionHeader)
	assert.Contains(t, rr.Header().Get("Access-Control-Expose-Headers"), "ETag")
	assert.Contains(t, rr.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
}
