package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/rhaddadin/remitjo/internal/api/handler"
	"github.com/rhaddadin/remitjo/internal/api/middleware"
	"github.com/rhaddadin/remitjo/internal/api/spec"
	"github.com/rhaddadin/remitjo/internal/config"
	"github.com/rhaddadin/remitjo/internal/fx"
	"github.com/rhaddadin/remitjo/internal/idempotency"
	"github.com/rhaddadin/remitjo/internal/service"
)

// Router wires configuration, infrastructure, and services into the HTTP
// surface.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	idemStore *idempotency.Store
	redis     redis.Cmdable

	rates       fx.Provider
	quoteSvc    *service.QuoteService
	checkoutSvc *service.CheckoutService
	webhookSvc  *service.WebhookService
	txSvc       *service.TransactionService
	benSvc      *service.BeneficiaryService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	idemStore *idempotency.Store,
	redisClient redis.Cmdable,
	rates fx.Provider,
	quoteSvc *service.QuoteService,
	checkoutSvc *service.CheckoutService,
	webhookSvc *service.WebhookService,
	txSvc *service.TransactionService,
	benSvc *service.BeneficiaryService,
) *Router {
	return &Router{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		idemStore:   idemStore,
		redis:       redisClient,
		rates:       rates,
		quoteSvc:    quoteSvc,
		checkoutSvc: checkoutSvc,
		webhookSvc:  webhookSvc,
		txSvc:       txSvc,
		benSvc:      benSvc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	rateHandler := handler.NewRateHandler(api.rates)
	quoteHandler := handler.NewQuoteHandler(api.quoteSvc)
	checkoutHandler := handler.NewCheckoutHandler(api.checkoutSvc)
	webhookHandler := handler.NewWebhookHandler(api.webhookSvc)
	txHandler := handler.NewTransactionHandler(api.txSvc)
	benHandler := handler.NewBeneficiaryHandler(api.benSvc)

	// Operational endpoints
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Get("/v1/rates", rateHandler.GetRate)
		r.Get("/v1/quote", quoteHandler.GetQuote)
		r.Post("/v1/webhooks/payments", webhookHandler.HandlePaymentWebhook)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.With(middleware.Idempotency(api.idemStore, api.logger)).
			Post("/v1/checkout", checkoutHandler.CreateCheckout)

		r.Get("/v1/transactions", txHandler.ListTransactions)
		r.Get("/v1/transactions/stats", txHandler.GetTransactionStats)
		r.Get("/v1/transactions/{id}", txHandler.GetTransaction)

		r.Post("/v1/beneficiaries", benHandler.CreateBeneficiary)
		r.Get("/v1/beneficiaries", benHandler.ListBeneficiaries)
		r.Get("/v1/beneficiaries/{id}", benHandler.GetBeneficiary)
		r.Put("/v1/beneficiaries/{id}", benHandler.UpdateBeneficiary)
		r.Delete("/v1/beneficiaries/{id}", benHandler.DeleteBeneficiary)
	})

	return r
}
