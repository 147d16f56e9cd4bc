package integration

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/nyumbapay/paycore/internal/adapter/gateway"
	adaptershttp "github.com/nyumbapay/paycore/internal/adapter/http"
	"github.com/nyumbapay/paycore/internal/adapter/http/handler"
	"github.com/nyumbapay/paycore/internal/adapter/repository/postgres"
	redisrepo "github.com/nyumbapay/paycore/internal/adapter/repository/redis"
	"github.com/nyumbapay/paycore/internal/infrastructure/logging"
	infraredis "github.com/nyumbapay/paycore/internal/infrastructure/redis"
	"github.com/nyumbapay/paycore/internal/usecase"
	"github.com/nyumbapay/paycore/tests/testutil"
)

// env wires the full stack against the test database, the way main does,
// minus the background workers.
type env struct {
	gateway  *gateway.SimulatedGateway
	walletUC *usecase.WalletUseCase
	reconUC  *usecase.ReconciliationUseCase
	pushUC   *usecase.PushPaymentUseCase
	notifs   usecase.NotificationRepository
	outbox   usecase.AuditOutboxRepository
	router   http.Handler
}

func setupEnv(t *testing.T, ctx context.Context) (*testutil.TestDB, *env) {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	t.Cleanup(testDB.Cleanup)
	testDB.TruncateAll(ctx)

	pool := testDB.Pool
	txManager := postgres.NewTxManager(pool)
	walletRepo := postgres.NewWalletRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	notifRepo := postgres.NewNotificationRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	outboxRepo := postgres.NewAuditOutboxRepository(pool)
	tenantRepo := postgres.NewTenantRepository(pool)
	idGen := postgres.NewULIDGenerator()
	logger := logging.New(logging.ParseLevel("error"), "json")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	redisClient, err := infraredis.NewClient(ctx, redisURL)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })
	// Cached balances and idempotency keys from a previous run would leak
	// into assertions.
	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}

	cache := redisrepo.NewCache(redisClient)
	pg := gateway.NewSimulatedGateway()

	walletUC := usecase.NewWalletUseCase(txManager, walletRepo, idGen, cache)
	allocationUC := usecase.NewAllocationUseCase(invoiceRepo, walletUC)
	matcher := usecase.NewMatcher(tenantRepo, sessionRepo, invoiceRepo)
	reconUC := usecase.NewReconciliationUseCase(
		txManager, notifRepo, walletUC, allocationUC, matcher,
		outboxRepo, tenantRepo, idGen, postgres.NewRetrier(), logger, nil,
	)
	pushUC := usecase.NewPushPaymentUseCase(
		pg, sessionRepo, reconUC, tenantRepo, idGen, logger, nil,
		0, 0,
	)
	t.Cleanup(pushUC.Shutdown)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		WebhookHandler:        handler.NewWebhookHandler(reconUC, pushUC),
		WalletHandler:         handler.NewWalletHandler(walletUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconUC),
		PushHandler:           handler.NewPushHandler(pushUC),
		HealthHandler:         handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:      redisrepo.NewIdempotencyStore(redisClient),
	})

	return testDB, &env{
		gateway:  pg,
		walletUC: walletUC,
		reconUC:  reconUC,
		pushUC:   pushUC,
		notifs:   notifRepo,
		outbox:   outboxRepo,
		router:   router,
	}
}
