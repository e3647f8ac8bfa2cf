package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/config"
)

type fakeCatalog struct {
	*httptest.Server
	familyCalls atomic.Int32
}

func newFakeCatalog(t *testing.T, total, pageSize int) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/store/products", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		var items []map[string]any
		for n := (page-1)*pageSize + 1; n <= min(page*pageSize, total); n++ {
			items = append(items, map[string]any{
				"_id":   fmt.Sprintf("p%02d", n),
				"name":  fmt.Sprintf("Gorra %02d", n),
				"price": n * 100,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":      items,
			"total":      total,
			"totalPages": (total + pageSize - 1) / pageSize,
		})
	})
	mux.HandleFunc("/api/families", func(w http.ResponseWriter, r *http.Request) {
		fc.familyCalls.Add(1)
		if r.Header.Get("If-None-Match") == `"fam-1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"fam-1"`)
		fmt.Fprint(w, `[{"id": "2", "title": "Mochilas"}, {"id": "1", "title": "Gorras"}, {"id": "9", "title": "Logo 24"}]`)
	})
	fc.Server = httptest.NewServer(mux)
	t.Cleanup(fc.Close)
	return fc
}

func testConfig(catalogURL string) *config.Config {
	return &config.Config{
		Environment:         "test",
		LogLevel:            "error",
		HTTPPort:            0,
		RequestTimeout:      5 * time.Second,
		CORSAllowedOrigins:  []string{"*"},
		CatalogBaseURL:      catalogURL,
		CatalogProductsPath: "/api/store/products",
		CatalogFamiliesPath: "/api/families",
		CatalogTimeout:      2 * time.Second,
		CatalogMaxRetries:   1,
		CatalogRetryBackoff: time.Millisecond,
		CatalogMaxConns:     4,
		CBEnabled:           true,
		CBMaxRequests:       1,
		CBInterval:          time.Minute,
		CBTimeout:           time.Second,
		CBFailureRatio:      0.5,
		CBMinRequests:       5,
		SearchPageSize:      24,
		SearchConcurrency:   4,
		SearchMaxPages:      50,
		SearchHeadroom:      100 * time.Millisecond,
		HiddenCategories:    []string{"logo 24"},
		CacheBackend:        config.CacheMemory,
		CacheTTL:            time.Hour,
		QuoteRatePerSecond:  1,
		QuoteRateBurst:      5,
		OTELSampleRate:      1,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

func get(t *testing.T, h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_SearchAcrossUpstreamPages(t *testing.T) {
	fc := newFakeCatalog(t, 34, 24)
	a := newTestApp(t, testConfig(fc.URL))

	rec := get(t, a.Handler(), "/api/search?sort=price_desc&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 34, body.Data.Total)
	assert.Equal(t, 2, body.Data.TotalPages)
	require.Len(t, body.Data.Items, 10)
	assert.Equal(t, "p10", body.Data.Items[0].ID)
	assert.Equal(t, "p01", body.Data.Items[9].ID)
}

// hang blocks until the client gives up on the request.
func hang(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

func newCatalogServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

type searchBody struct {
	Data struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Partial bool `json:"partial"`
	} `json:"data"`
}

func TestApp_HangingLaterPageDegradesBeforeRequestTimeout(t *testing.T) {
	var firstPageCalls atomic.Int32
	srv := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			if firstPageCalls.Add(1) == 1 {
				hang(r)
				return
			}
			fmt.Fprint(w, `{"items": [{"id": "a", "price": 1}, {"id": "b", "price": 2}, {"id": "c", "price": 3}], "totalPages": 2}`)
		default:
			hang(r)
		}
	})

	// Same proportions as the defaults: the request timeout only just
	// covers one full retry envelope plus headroom.
	cfg := testConfig(srv.URL)
	cfg.CatalogTimeout = 100 * time.Millisecond
	cfg.CatalogMaxRetries = 2
	cfg.CatalogRetryBackoff = 10 * time.Millisecond
	cfg.SearchHeadroom = 100 * time.Millisecond
	cfg.RequestTimeout = 500 * time.Millisecond
	require.Greater(t, cfg.RequestTimeout, cfg.CatalogClient().Envelope()+cfg.SearchHeadroom)
	a := newTestApp(t, cfg)

	rec := get(t, a.Handler(), "/api/search", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var body searchBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Partial)
	assert.Len(t, body.Data.Items, 3)
	assert.Equal(t, int32(2), firstPageCalls.Load())
}

func TestApp_UpstreamErrorsAreNotCached(t *testing.T) {
	srv := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	a := newTestApp(t, testConfig(srv.URL))

	for _, target := range []string{"/api/search", "/api/families"} {
		rec := get(t, a.Handler(), target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"), target)
		assert.Equal(t, "10", rec.Header().Get("Retry-After"), target)
	}
	assert.Contains(t, get(t, a.Handler(), "/api/search", nil).Header().Values("Vary"), "X-Search-Session")
}

func TestApp_HiddenCategoryNeverLeaksThroughItems(t *testing.T) {
	const item = `{
		"_id": "a",
		"name": "Gorra trucker",
		"price": 1500,
		"description": "Gorra trucker\nLogo 24hs: entrega en el día",
		"families": [{"id": "1", "title": "Gorras"}, {"id": "9", "title": "Logo 24"}],
		"packaging": "Bolsa individual",
		"units_per_box": 100
	}`
	srv := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/store/products/a" {
			fmt.Fprint(w, item)
			return
		}
		fmt.Fprintf(w, `{"items": [%s], "totalPages": 1}`, item)
	})
	a := newTestApp(t, testConfig(srv.URL))

	search := get(t, a.Handler(), "/api/search", nil)
	require.Equal(t, http.StatusOK, search.Code)
	assert.Contains(t, search.Body.String(), "Gorras")
	assert.NotContains(t, search.Body.String(), "Logo 24")

	product := get(t, a.Handler(), "/api/products/a", nil)
	require.Equal(t, http.StatusOK, product.Code)
	assert.NotContains(t, product.Body.String(), "Logo 24")
	assert.Contains(t, product.Body.String(), `"packaging":"Bolsa individual"`)
	assert.Contains(t, product.Body.String(), `"units_per_box":100`)
}

func TestApp_FamiliesWithRedisCache(t *testing.T) {
	fc := newFakeCatalog(t, 1, 24)
	mr := miniredis.RunT(t)

	cfg := testConfig(fc.URL)
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = mr.Addr()
	a := newTestApp(t, cfg)

	first := get(t, a.Handler(), "/api/families", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Gorras")
	assert.NotContains(t, first.Body.String(), "Logo 24")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.NotEmpty(t, mr.Keys())

	second := get(t, a.Handler(), "/api/families", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Equal(t, int32(2), fc.familyCalls.Load())
}

func TestApp_HealthReportsDependencies(t *testing.T) {
	fc := newFakeCatalog(t, 1, 24)
	mr := miniredis.RunT(t)

	cfg := testConfig(fc.URL)
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = mr.Addr()
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, get(t, a.Handler(), "/health/live", nil).Code)

	rec := get(t, a.Handler(), "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
	assert.Contains(t, rec.Body.String(), "catalog")
}

func TestApp_QuoteWithoutSMTPIsLogged(t *testing.T) {
	fc := newFakeCatalog(t, 1, 24)
	cfg := testConfig(fc.URL)
	cfg.MailFrom = "ventas@brandcaps.test"
	a := newTestApp(t, cfg)
	require.False(t, cfg.MailEnabled())

	rec := get(t, a.Handler(), "/api/quotes", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST")
}

func TestNewApp_RejectsUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig("http://127.0.0.1:1")
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = addr

	_, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_LogsHiddenCategories(t *testing.T) {
	fc := newFakeCatalog(t, 1, 24)
	var buf bytes.Buffer
	a, err := NewApp(testConfig(fc.URL), slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.Contains(t, buf.String(), `"msg":"hidden categories loaded","terms":["logo 24"]`)
}

func TestApp_ShutdownWithoutRun(t *testing.T) {
	fc := newFakeCatalog(t, 1, 24)
	a, err := NewApp(testConfig(fc.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.NoError(t, a.Shutdown())
}
