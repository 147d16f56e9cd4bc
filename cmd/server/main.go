package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nyumbapay/paycore/internal/adapter/gateway"
	httpAdapter "github.com/nyumbapay/paycore/internal/adapter/http"
	"github.com/nyumbapay/paycore/internal/adapter/http/handler"
	postgresRepo "github.com/nyumbapay/paycore/internal/adapter/repository/postgres"
	redisRepo "github.com/nyumbapay/paycore/internal/adapter/repository/redis"
	"github.com/nyumbapay/paycore/internal/infrastructure/auditpublisher"
	"github.com/nyumbapay/paycore/internal/infrastructure/config"
	"github.com/nyumbapay/paycore/internal/infrastructure/logging"
	"github.com/nyumbapay/paycore/internal/infrastructure/metrics"
	"github.com/nyumbapay/paycore/internal/infrastructure/postgres"
	"github.com/nyumbapay/paycore/internal/infrastructure/redis"
	"github.com/nyumbapay/paycore/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	m := metrics.New()

	ctx := context.Background()

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	invoiceRepo := postgresRepo.NewInvoiceRepository(pool)
	notifRepo := postgresRepo.NewNotificationRepository(pool)
	sessionRepo := postgresRepo.NewSessionRepository(pool)
	outboxRepo := postgresRepo.NewAuditOutboxRepository(pool)
	tenantRepo := postgresRepo.NewTenantRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// The simulated gateway stands in until the operator integration is
	// deployed alongside; both satisfy the same interface.
	paymentGateway := gateway.NewSimulatedGateway()

	// Use cases
	walletUC := usecase.NewWalletUseCase(txManager, walletRepo, idGen, cache)
	allocationUC := usecase.NewAllocationUseCase(invoiceRepo, walletUC)
	matcher := usecase.NewMatcher(tenantRepo, sessionRepo, invoiceRepo)
	reconUC := usecase.NewReconciliationUseCase(
		txManager, notifRepo, walletUC, allocationUC, matcher,
		outboxRepo, tenantRepo, idGen, postgresRepo.NewRetrier(), logger, m,
	)
	pushUC := usecase.NewPushPaymentUseCase(
		paymentGateway, sessionRepo, reconUC, tenantRepo, idGen, logger, m,
		cfg.PushPollInterval, cfg.PushPollBudget,
	)

	// Resume whatever a previous process left unfinished.
	if resumed, err := reconUC.RecoverInFlight(ctx); err != nil {
		log.Error().Err(err).Msg("startup recovery sweep failed")
	} else if resumed > 0 {
		log.Info().Int("resumed", resumed).Msg("resumed in-flight reconciliations")
	}
	if err := pushUC.ResumePolling(ctx); err != nil {
		log.Error().Err(err).Msg("failed to resume push session polling")
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var publisher auditpublisher.Publisher
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer conn.Close()
		publisher = auditpublisher.NewNATSPublisher(conn, cfg.AuditSubject)
		log.Info().Str("subject", cfg.AuditSubject).Msg("audit events go to nats")
	} else {
		publisher = auditpublisher.NewLogPublisher(logger.Logger)
		log.Info().Msg("audit events go to the log")
	}

	auditWorker := auditpublisher.New(auditpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     logger.Logger,
		Metrics:    m,
		Interval:   cfg.AuditPollInterval,
	})
	go func() {
		if err := auditWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error().Err(err).Msg("audit publisher stopped")
		}
	}()

	go recoveryLoop(workerCtx, reconUC, cfg.RecoveryInterval)

	// Handlers
	webhookHandler := handler.NewWebhookHandler(reconUC, pushUC)
	walletHandler := handler.NewWalletHandler(walletUC)
	reconHandler := handler.NewReconciliationHandler(reconUC)
	pushHandler := handler.NewPushHandler(pushUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		WebhookHandler:        webhookHandler,
		WalletHandler:         walletHandler,
		ReconciliationHandler: reconHandler,
		PushHandler:           pushHandler,
		HealthHandler:         healthHandler,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Metrics:               m,
		WebhookToken:          cfg.WebhookToken,
		WebhookRateLimit:      cfg.WebhookRateLimit,
		WebhookRateBurst:      cfg.WebhookRateBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stopWorkers()
	pushUC.Shutdown()

	log.Info().Msg("server stopped")
}

// recoveryLoop periodically resumes notifications stuck mid state machine,
// catching anything the startup sweep and in-process retries missed.
func recoveryLoop(ctx context.Context, reconUC *usecase.ReconciliationUseCase, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if resumed, err := reconUC.RecoverInFlight(ctx); err != nil {
				log.Error().Err(err).Msg("recovery sweep failed")
			} else if resumed > 0 {
				log.Info().Int("resumed", resumed).Msg("resumed in-flight reconciliations")
			}
		}
	}
}
