package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/cache"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/cache/memory"
	rediscache "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/cache/redis"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/catalog"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/config"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/event"
	handler "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/handler/http"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/mailer"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/search"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/service"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/urlstate"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/database"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/health"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httpclient"
	pkgkafka "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/kafka"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/middleware"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	stopLimiter    context.CancelFunc
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	healthHandler := health.NewHandler()

	// Upstream catalog client, optionally behind a circuit breaker.
	var fetcher httpclient.Fetcher = httpclient.New(cfg.CatalogClient())
	if cfg.CBEnabled {
		cbCfg := httpclient.CircuitBreakerConfig{
			Name:         "catalog",
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     cfg.CBInterval,
			Timeout:      cfg.CBTimeout,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}
		breaker := httpclient.NewCircuitBreakerClient(fetcher, cbCfg, logger)
		fetcher = breaker
		healthHandler.RegisterNonCritical("catalog", func(context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return errors.New("catalog circuit breaker is open")
			}
			return nil
		})
		logger.Info("circuit breaker initialized",
			slog.String("name", cbCfg.Name),
			slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
			slog.Duration("timeout", cbCfg.Timeout),
			slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
		)
	}

	catalogClient, err := catalog.NewClient(fetcher, catalog.Config{
		BaseURL:      cfg.CatalogBaseURL,
		ProductsPath: cfg.CatalogProductsPath,
		FamiliesPath: cfg.CatalogFamiliesPath,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	// Families cache.
	store, err := a.newCacheStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Quote delivery.
	var sender mailer.Sender
	if cfg.MailEnabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Timeout:  cfg.SMTPTimeout,
		}, logger)
		logger.Info("smtp mailer initialized", slog.String("host", cfg.SMTPHost), slog.Int("port", cfg.SMTPPort))
	} else {
		sender = mailer.NewLogSender(logger)
		logger.Warn("SMTP_HOST not set, quote emails will only be logged")
	}

	var publisher service.QuotePublisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	denylist := urlstate.NewDenylist(cfg.HiddenCategories...)
	logger.Info("hidden categories loaded", slog.Any("terms", denylist.Terms()))
	codec := urlstate.NewCodec(denylist)
	aggregator := search.NewAggregator(catalogClient, logger,
		search.WithConcurrency(cfg.SearchConcurrency),
		search.WithMaxPages(cfg.SearchMaxPages),
		search.WithFanoutBudget(cfg.SearchFanoutBudget),
		search.WithHeadroom(cfg.SearchHeadroom),
	)

	searchService := service.NewSearchService(aggregator, codec, cfg.SearchPageSize, logger)
	productService := service.NewProductService(catalogClient, denylist.Hidden, logger)
	familyService := service.NewFamilyService(catalogClient, store, denylist.Hidden, logger)
	quoteService := service.NewQuoteService(sender, publisher, cfg.QuoteRecipient(), logger)

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	a.stopLimiter = stopLimiter
	quoteLimiter := middleware.NewRateLimiter(limiterCtx, cfg.QuoteRatePerSecond, cfg.QuoteRateBurst, 10*time.Minute, logger).
		TrustProxies(cfg.TrustedProxyCIDRs)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	// HTTP router.
	router := handler.NewRouter(handler.Handlers{
		Search:   handler.NewSearchHandler(searchService, codec, logger),
		Products: handler.NewProductHandler(productService, logger),
		Families: handler.NewFamilyHandler(familyService, logger),
		Quotes:   handler.NewQuoteHandler(quoteService, logger),
	}, healthHandler, handler.RouterConfig{
		CORS:           cors,
		RequestTimeout: cfg.RequestTimeout,
		QuoteLimiter:   quoteLimiter,
		ProfilerCIDRs:  cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) newCacheStore(ctx context.Context, healthHandler *health.Handler) (cache.Store, error) {
	if a.cfg.CacheBackend != config.CacheRedis {
		a.logger.Info("using in-process families cache", slog.Duration("ttl", a.cfg.CacheTTL))
		return memory.New(a.cfg.CacheTTL), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = a.cfg.RedisAddr
	redisCfg.Password = a.cfg.RedisPass
	redisCfg.DB = a.cfg.RedisDB

	rdb, err := database.NewRedisClient(ctx, redisCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)

	if a.cfg.SlowCacheCmdMs > 0 {
		database.SetSlowCommandLogging(time.Duration(a.cfg.SlowCacheCmdMs)*time.Millisecond, a.logger)
	}
	// Stale copies and upstream revalidation cover a cache outage.
	healthHandler.RegisterNonCritical("redis", database.RedisPinger(rdb))

	return rediscache.New(rdb, a.cfg.CacheTTL), nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, Redis client.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Searches may run for a while; give them the full request budget.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.stopLimiter != nil {
		a.stopLimiter()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
