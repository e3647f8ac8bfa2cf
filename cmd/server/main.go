package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/app"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/config"
	pkgconfig "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/config"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/logger"
)

func main() {
	// Local development reads .env; real environment variables win.
	if err := pkgconfig.LoadDotEnv(".env.local", ".env"); err != nil {
		slog.Error("failed to read .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront", cfg.LogLevel)
	log.Info("starting storefront service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("catalog", cfg.CatalogBaseURL),
		slog.String("cache", cfg.CacheBackend),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storefront service stopped")
}
