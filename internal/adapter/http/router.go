package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nyumbapay/paycore/internal/adapter/http/handler"
	"github.com/nyumbapay/paycore/internal/adapter/http/middleware"
	"github.com/nyumbapay/paycore/internal/infrastructure/metrics"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	WebhookHandler        *handler.WebhookHandler
	WalletHandler         *handler.WalletHandler
	ReconciliationHandler *handler.ReconciliationHandler
	PushHandler           *handler.PushHandler
	HealthHandler         *handler.HealthHandler
	IdempotencyStore      usecase.IdempotencyStore
	IdempotencyTTL        time.Duration
	Metrics               *metrics.Metrics
	WebhookToken          string
	WebhookRateLimit      float64
	WebhookRateBurst      int
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	// Gateway-facing webhooks, behind shared-secret auth and rate limiting.
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookAuth(cfg.WebhookToken))
		if cfg.WebhookRateLimit > 0 {
			limiter := middleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)
			r.Use(limiter.Limit)
		}
		r.Post("/payments", cfg.WebhookHandler.PaymentConfirmation)
		r.Post("/push-callbacks", cfg.WebhookHandler.PushCallback)
	})

	// Staff and service API
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/wallet", cfg.WalletHandler.Get)
			r.Get("/wallet/entries", cfg.WalletHandler.ListEntries)
			r.Get("/wallet/verify", cfg.WalletHandler.Verify)
			r.Get("/history", cfg.ReconciliationHandler.TenantHistory)
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Get("/pending", cfg.ReconciliationHandler.ListPending)
			r.Get("/{id}", cfg.ReconciliationHandler.Get)
			r.Post("/{id}/resolve", cfg.ReconciliationHandler.Resolve)
			r.Post("/{id}/dismiss", cfg.ReconciliationHandler.Dismiss)
			r.Post("/refunds", cfg.ReconciliationHandler.Refund)
		})

		r.Route("/push-payments", func(r chi.Router) {
			r.Post("/", cfg.PushHandler.Initiate)
			r.Get("/{id}", cfg.PushHandler.Get)
			r.Post("/{id}/close", cfg.PushHandler.Close)
		})
	})

	return r
}
