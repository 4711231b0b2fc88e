package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graficahorizonte/payments-go/internal/config"
	"github.com/graficahorizonte/payments-go/internal/domain"
	"github.com/graficahorizonte/payments-go/internal/handler"
	"github.com/graficahorizonte/payments-go/internal/infra/cache"
	"github.com/graficahorizonte/payments-go/internal/infra/efi"
	"github.com/graficahorizonte/payments-go/internal/infra/observability"
	"github.com/graficahorizonte/payments-go/internal/infra/resilience"
	"github.com/graficahorizonte/payments-go/internal/infra/supabase"
	"github.com/graficahorizonte/payments-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("efi_env", cfg.Efi.Environment),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "grafica-payments")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	qrCache := cache.New[domain.PixQRCode](cfg.CacheTTL)
	defer qrCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	gatewayCB := resilience.NewCircuitBreaker("efi-gateway")
	storeCB := resilience.NewCircuitBreaker("supabase")

	// --- Efí gateway client (mTLS; fails fast on a broken identity) ---
	efiHTTPClient, err := efi.NewHTTPClient(cfg.Efi, cfg.HTTPTimeout)
	if err != nil {
		logger.Fatal("efi certificate setup failed", zap.Error(err))
	}
	efiClient, err := efi.NewClient(efiHTTPClient, cfg.Efi, gatewayCB, resilienceCfg, logger, metrics)
	if err != nil {
		logger.Fatal("efi client setup failed", zap.Error(err))
	}
	logger.Info("efi gateway client ready",
		zap.String("pix_url", cfg.Efi.PixBaseURL),
		zap.String("charge_url", cfg.Efi.ChargeBaseURL),
	)

	// --- Order store ---
	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL not configured; order persistence is required")
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	orderStore := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		storeCB,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	checkoutSvc := service.NewCheckoutService(efiClient, efiClient, orderStore, qrCache, metrics, logger)
	sessions := service.NewSessionValidator(cfg.JWTSecret)

	// --- Router ---
	router := handler.NewRouter(checkoutSvc, sessions, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
