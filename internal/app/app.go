package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rhaddadin/remitjo/internal/api"
	"github.com/rhaddadin/remitjo/internal/api/middleware"
	"github.com/rhaddadin/remitjo/internal/config"
	"github.com/rhaddadin/remitjo/internal/db"
	"github.com/rhaddadin/remitjo/internal/fx"
	"github.com/rhaddadin/remitjo/internal/gateway"
	"github.com/rhaddadin/remitjo/internal/idempotency"
	"github.com/rhaddadin/remitjo/internal/observability"
	"github.com/rhaddadin/remitjo/internal/repository"
	"github.com/rhaddadin/remitjo/internal/service"
	"github.com/rhaddadin/remitjo/internal/worker"
)

// Run bootstraps the HTTP server and expiry worker, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	repo := repository.NewRepository(pool)
	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)

	rates := fx.NewClient(cfg.FXBaseURL, cfg.FXFallbackRate, cfg.FXTimeout, cfg.FXCacheTTL, redisClient)
	gw := newGateway(cfg, logger)

	quoteSvc := service.NewQuoteService(rates, cfg.QuoteFeeRate, cfg.QuoteMinAmount, cfg.QuoteMaxAmount)
	checkoutSvc := service.NewCheckoutService(repo, gw, quoteSvc, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	webhookSvc := service.NewWebhookService(repo, repo, cfg.WebhookHMACKey, cfg.WebhookSkipSignature)
	txSvc := service.NewTransactionService(repo)
	benSvc := service.NewBeneficiaryService(repo)

	expiryWorker := worker.NewExpiryWorker(repo).
		WithInterval(cfg.ExpirySweepInterval).
		WithSessionTTL(cfg.SessionTTL)
	stopWorker := expiryWorker.Run(ctx)
	logger.Info("expiry worker started",
		zap.Duration("interval", cfg.ExpirySweepInterval),
		zap.Duration("session_ttl", cfg.SessionTTL))

	router := api.NewRouter(cfg, logger, pool, idemStore, redisClient, rates, quoteSvc, checkoutSvc, webhookSvc, txSvc, benSvc)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping expiry worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// newGateway returns the live checkout client when an API key is configured,
// otherwise the mock. The mock keeps local development working without
// provider credentials.
func newGateway(cfg *config.Config, logger *zap.Logger) gateway.Gateway {
	if cfg.GatewayAPIKey == "" {
		logger.Warn("no gateway api key configured, using mock checkout gateway")
		return gateway.NewMockGateway()
	}
	return gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
