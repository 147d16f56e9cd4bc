package usecase

import (
	"context"
	"time"

	"github.com/nyumbapay/paycore/internal/domain"
)

// WalletRepository defines data access for wallet accounts and ledger entries.
type WalletRepository interface {
	GetWallet(ctx context.Context, tenantID string) (*domain.WalletAccount, error)
	GetWalletForUpdate(ctx context.Context, tx Transaction, tenantID string) (*domain.WalletAccount, error)
	UpdateBalance(ctx context.Context, tx Transaction, tenantID string, balance, version int64, updatedAt time.Time) error
	// CreateEntry inserts an immutable ledger entry. A (tenant, external_ref)
	// uniqueness violation surfaces as domain.ErrDuplicateReference.
	CreateEntry(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetEntryByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error)
	GetEntryByExternalRef(ctx context.Context, tenantID, externalRef string) (*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, tenantID string, limit, offset int) ([]*domain.LedgerEntry, error)
	ListEntriesByRefPrefix(ctx context.Context, tenantID, refPrefix string) ([]*domain.LedgerEntry, error)
}

// InvoiceRepository defines data access for invoices.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	// ListOpenForUpdate returns open invoices (balance due > 0, allocatable
	// status) ordered by due date ascending, row-locked for the transaction.
	ListOpenForUpdate(ctx context.Context, tx Transaction, tenantID string) ([]*domain.Invoice, error)
	ListOpen(ctx context.Context, tenantID string) ([]*domain.Invoice, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Invoice, error)
	Update(ctx context.Context, tx Transaction, invoice *domain.Invoice) error
}

// NotificationRepository defines data access for inbound payment notifications
// and their reconciliation state machine.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	GetByGatewayTxnID(ctx context.Context, gatewayTxnID string) (*domain.Notification, error)
	Update(ctx context.Context, n *domain.Notification) error
	UpdateTx(ctx context.Context, tx Transaction, n *domain.Notification) error
	ListPending(ctx context.Context, limit, offset int) ([]*domain.Notification, error)
	// ListInFlight returns notifications stuck mid state machine (received,
	// matched, credited or allocated) for the recovery sweep.
	ListInFlight(ctx context.Context, limit int) ([]*domain.Notification, error)
}

// SessionRepository defines data access for push payment sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.PushPaymentSession) error
	GetByID(ctx context.Context, id string) (*domain.PushPaymentSession, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*domain.PushPaymentSession, error)
	Update(ctx context.Context, s *domain.PushPaymentSession) error
	ListAwaiting(ctx context.Context, limit int) ([]*domain.PushPaymentSession, error)
}

// AuditOutboxRepository defines data access for the audit event outbox.
type AuditOutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.AuditEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.AuditEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// TenantDirectory is the read-only projection of tenant data the matcher and
// the manual reconciliation surface need. Tenant CRUD is owned elsewhere.
type TenantDirectory interface {
	GetByID(ctx context.Context, tenantID string) (*domain.TenantProfile, error)
	FindByAccountRef(ctx context.Context, accountRef string) (*domain.TenantProfile, error)
	FindByPhone(ctx context.Context, phone string) ([]*domain.TenantProfile, error)
}

// PushRequest is an initiation call to the payment gateway collaborator.
type PushRequest struct {
	Phone     string
	Amount    int64
	Reference string
}

// PushInitiation is the gateway's synchronous answer to an initiation call.
type PushInitiation struct {
	CorrelationID string
}

// PushStatusState is the gateway's view of an in-flight push payment.
type PushStatusState string

const (
	PushStatusPending   PushStatusState = "pending"
	PushStatusSucceeded PushStatusState = "succeeded"
	PushStatusFailed    PushStatusState = "failed"
)

// PushStatus is a poll result from the gateway collaborator.
type PushStatus struct {
	State        PushStatusState
	Reason       string
	GatewayTxnID string
	Amount       int64
}

// PaymentGateway is the external mobile-money collaborator. It can initiate a
// push payment and report delivery status; its SDK plumbing is not part of
// this core.
type PaymentGateway interface {
	InitiatePush(ctx context.Context, req PushRequest) (PushInitiation, error)
	QueryPushStatus(ctx context.Context, correlationID string) (PushStatus, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// TxRetrier re-runs a transactional operation that lost a serialization or
// deadlock race. Non-retryable errors come back unchanged.
type TxRetrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage for the webhook fast path.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
