package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/config"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httpclient"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16" envSeparator:","`

	// Upstream catalog
	CatalogBaseURL      string        `env:"CATALOG_BASE_URL" envDefault:"http://localhost:3000"`
	CatalogProductsPath string        `env:"CATALOG_PRODUCTS_PATH" envDefault:"/api/store/products"`
	CatalogFamiliesPath string        `env:"CATALOG_FAMILIES_PATH" envDefault:"/api/families"`
	CatalogTimeout      time.Duration `env:"CATALOG_TIMEOUT" envDefault:"18s"`
	CatalogMaxRetries   int           `env:"CATALOG_MAX_RETRIES" envDefault:"2"`
	CatalogRetryBackoff time.Duration `env:"CATALOG_RETRY_BACKOFF" envDefault:"800ms"`
	CatalogMaxConns     int           `env:"CATALOG_MAX_CONNS_PER_HOST" envDefault:"32"`

	// Circuit breaker in front of the catalog
	CBEnabled      bool          `env:"CB_ENABLED" envDefault:"true"`
	CBMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Search
	SearchPageSize    int      `env:"SEARCH_PAGE_SIZE" envDefault:"24"`
	SearchConcurrency int      `env:"SEARCH_CONCURRENCY" envDefault:"8"`
	SearchMaxPages    int      `env:"SEARCH_MAX_PAGES" envDefault:"250"`
	HiddenCategories  []string `env:"HIDDEN_CATEGORIES" envDefault:"logo 24,logo24,logo-24hs,logo-24" envSeparator:","`
	// SearchFanoutBudget bounds pages 2..N; zero means up to the request
	// deadline minus SearchHeadroom.
	SearchFanoutBudget time.Duration `env:"SEARCH_FANOUT_BUDGET" envDefault:"0s"`
	SearchHeadroom     time.Duration `env:"SEARCH_RESPONSE_HEADROOM" envDefault:"2s"`

	// Families cache
	CacheBackend   string        `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"24h"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass      string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	SlowCacheCmdMs int           `env:"LOG_SLOW_CACHE_MS" envDefault:"100"`

	// Kafka; quote events are disabled when no broker is configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Quote email
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string        `env:"SMTP_USER"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
	MailFrom     string        `env:"MAIL_FROM"`
	QuoteTo      string        `env:"QUOTE_TO_EMAIL"`

	// Quote submissions per client IP
	QuoteRatePerSecond float64 `env:"QUOTE_RATE_PER_SECOND" envDefault:"0.1"`
	QuoteRateBurst     int     `env:"QUOTE_RATE_BURST" envDefault:"5"`
	// TrustedProxyCIDRs lists the reverse proxies whose forwarding headers
	// identify the client. Empty means the connection address is used.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MailEnabled reports whether quotes are delivered over SMTP.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// QuoteRecipient is the sales inbox, falling back to the sender address.
func (c *Config) QuoteRecipient() string {
	if c.QuoteTo != "" {
		return c.QuoteTo
	}
	return c.MailFrom
}

// CatalogClient is the retry envelope used for every catalog request.
func (c *Config) CatalogClient() httpclient.Config {
	return httpclient.Config{
		Timeout:         c.CatalogTimeout,
		MaxRetries:      c.CatalogMaxRetries,
		RetryBackoff:    c.CatalogRetryBackoff,
		MaxConnsPerHost: c.CatalogMaxConns,
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.CatalogBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CATALOG_BASE_URL must be an absolute http(s) URL, got %q", c.CatalogBaseURL)
	}
	if c.CatalogMaxRetries < 0 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must not be negative")
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > 100 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be between 1 and 100, got %d", c.SearchPageSize)
	}
	if c.SearchConcurrency < 1 {
		return fmt.Errorf("SEARCH_CONCURRENCY must be at least 1, got %d", c.SearchConcurrency)
	}
	if c.SearchMaxPages < 1 {
		return fmt.Errorf("SEARCH_MAX_PAGES must be at least 1, got %d", c.SearchMaxPages)
	}
	if c.SearchFanoutBudget < 0 || c.SearchHeadroom < 0 {
		return fmt.Errorf("SEARCH_FANOUT_BUDGET and SEARCH_RESPONSE_HEADROOM must not be negative")
	}
	// Page 1 must be able to exhaust its retries and still leave headroom
	// to answer before the request deadline.
	if envelope := c.CatalogClient().Envelope(); c.RequestTimeout <= envelope+c.SearchHeadroom {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed the catalog retry envelope (%s) plus SEARCH_RESPONSE_HEADROOM (%s)",
			c.RequestTimeout, envelope, c.SearchHeadroom)
	}
	if c.CacheBackend != CacheMemory && c.CacheBackend != CacheRedis {
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CacheRedis, c.CacheBackend)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	if c.MailEnabled() && c.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required when SMTP_HOST is set")
	}
	if c.QuoteRatePerSecond <= 0 {
		return fmt.Errorf("QUOTE_RATE_PER_SECOND must be positive, got %f", c.QuoteRatePerSecond)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
