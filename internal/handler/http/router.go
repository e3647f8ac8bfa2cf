package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/health"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "storefront"

// Handlers groups the API handlers mounted by NewRouter.
type Handlers struct {
	Search   *SearchHandler
	Products *ProductHandler
	Families *FamilyHandler
	Quotes   *QuoteHandler
}

// RouterConfig tunes the router middleware.
type RouterConfig struct {
	CORS middleware.CORSConfig
	// RequestTimeout bounds every API request. Search aggregates all
	// upstream pages, so it needs more than a typical JSON API.
	RequestTimeout time.Duration
	// QuoteLimiter, when set, rate limits quote submissions per client IP.
	QuoteLimiter *middleware.RateLimiter
	// ProfilerCIDRs lists the networks allowed to read /debug/pprof.
	ProfilerCIDRs []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(h Handlers, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	middleware.MountProfiler(r, cfg.ProfilerCIDRs, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))

		r.With(
			middleware.Vary(middleware.SessionHeader),
			middleware.CacheControl(30, 120),
		).Get("/search", h.Search.Search)
		r.With(middleware.CacheControl(60, 300)).Get("/products/{id}", h.Products.GetProduct)
		r.With(middleware.CacheControl(300, 3600)).Get("/families", h.Families.ListFamilies)

		r.Route("/quotes", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Get("/", h.Quotes.Usage)

			post := r.With(ContentTypeJSON)
			if cfg.QuoteLimiter != nil {
				post = post.With(cfg.QuoteLimiter.Middleware)
			}
			post.Post("/", h.Quotes.Submit)
		})
	})

	return r
}
