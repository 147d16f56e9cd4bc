package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/infrastructure/logging"
	"github.com/nyumbapay/paycore/internal/infrastructure/metrics"
)

// ReconciliationUseCase orchestrates receive -> match -> credit -> allocate
// -> record for every inbound payment notification, with a pending-review
// fallback when matching is ambiguous or fails. Every transition is a durable
// step: state is persisted before the next step starts, so a restart can
// resume any notification not yet recorded.
type ReconciliationUseCase struct {
	txManager  TransactionManager
	notifRepo  NotificationRepository
	wallets    *WalletUseCase
	allocator  *AllocationUseCase
	matcher    *Matcher
	outboxRepo AuditOutboxRepository
	tenants    TenantDirectory
	idGen      IDGenerator
	retrier    TxRetrier
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewReconciliationUseCase creates a new ReconciliationUseCase. retrier may
// be nil; settlement steps then run without deadlock retries.
func NewReconciliationUseCase(
	txManager TransactionManager,
	notifRepo NotificationRepository,
	wallets *WalletUseCase,
	allocator *AllocationUseCase,
	matcher *Matcher,
	outboxRepo AuditOutboxRepository,
	tenants TenantDirectory,
	idGen IDGenerator,
	retrier TxRetrier,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:  txManager,
		notifRepo:  notifRepo,
		wallets:    wallets,
		allocator:  allocator,
		matcher:    matcher,
		outboxRepo: outboxRepo,
		tenants:    tenants,
		idGen:      idGen,
		retrier:    retrier,
		logger:     logger,
		metrics:    m,
	}
}

// IngestInput is an inbound payment notification from the gateway.
type IngestInput struct {
	GatewayTxnID  string
	Amount        int64
	PayerPhone    string
	AccountRef    string
	CorrelationID string
	Source        domain.PaymentSource
	OccurredAt    time.Time
}

// HandleNotification processes one inbound notification end to end. It is
// idempotent keyed by gateway transaction id: a duplicate delivery returns
// the original notification without touching the ledger again.
func (uc *ReconciliationUseCase) HandleNotification(ctx context.Context, input IngestInput) (*domain.Notification, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.GatewayTxnID == "" {
		return nil, fmt.Errorf("%w: gateway transaction id required", domain.ErrInvalidAmount)
	}

	if existing, err := uc.notifRepo.GetByGatewayTxnID(ctx, input.GatewayTxnID); err == nil {
		uc.countNotification("duplicate")
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotificationNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	n := &domain.Notification{
		ID:            uc.idGen.Generate(),
		GatewayTxnID:  input.GatewayTxnID,
		Amount:        input.Amount,
		PayerPhone:    input.PayerPhone,
		AccountRef:    input.AccountRef,
		CorrelationID: input.CorrelationID,
		Source:        input.Source,
		OccurredAt:    input.OccurredAt,
		State:         domain.NotificationStateReceived,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.notifRepo.Create(ctx, n); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// Lost a race with a concurrent delivery of the same event.
			return uc.notifRepo.GetByGatewayTxnID(ctx, input.GatewayTxnID)
		}
		return nil, err
	}

	if err := uc.processReceived(ctx, n); err != nil {
		return nil, err
	}

	return n, nil
}

// processReceived runs matching for a notification still in the received
// state and either routes it to pending review or settles it. The recovery
// sweep reuses it for notifications that crashed before leaving received.
func (uc *ReconciliationUseCase) processReceived(ctx context.Context, n *domain.Notification) error {
	match, err := uc.matcher.Match(ctx, n)
	if err != nil {
		return err
	}

	if match.Outcome != MatchOutcomeMatched {
		if err := uc.transition(ctx, n, domain.NotificationStateUnmatched); err != nil {
			return err
		}
		if err := uc.transition(ctx, n, domain.NotificationStatePendingReview); err != nil {
			return err
		}
		uc.countNotification(string(match.Outcome))
		uc.logger.WarnCtx(ctx, "notification routed to pending review",
			"notification_id", n.ID,
			"gateway_txn_id", n.GatewayTxnID,
			"outcome", string(match.Outcome),
		)
		return nil
	}

	n.TenantID = match.TenantID
	n.InvoiceID = match.InvoiceID
	if err := uc.transition(ctx, n, domain.NotificationStateMatched); err != nil {
		return err
	}

	if err := uc.settle(ctx, n, domain.EntryKindCredit); err != nil {
		return err
	}
	uc.countNotification("matched")

	return nil
}

// ResolveInput is a staff resolution of a pending notification.
type ResolveInput struct {
	NotificationID string
	TenantID       string
	Note           string
	StaffID        string
}

// ResolvePending assigns a pending notification to a tenant and re-enters
// the state machine at the matched step, feeding the same credit/allocate
// path as automatic matches.
func (uc *ReconciliationUseCase) ResolvePending(ctx context.Context, input ResolveInput) (*domain.Notification, error) {
	n, err := uc.notifRepo.GetByID(ctx, input.NotificationID)
	if err != nil {
		return nil, err
	}
	if n.State != domain.NotificationStatePendingReview {
		return nil, domain.ErrNotPendingReview
	}

	if _, err := uc.tenants.GetByID(ctx, input.TenantID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	n.TenantID = input.TenantID
	n.ResolutionNote = input.Note
	n.ResolvedBy = input.StaffID
	n.ResolvedAt = &now
	if err := uc.transition(ctx, n, domain.NotificationStateMatched); err != nil {
		return nil, err
	}

	if err := uc.settle(ctx, n, domain.EntryKindCreditReconciliation); err != nil {
		return nil, err
	}
	uc.countNotification("resolved")

	return n, nil
}

// DismissPending closes a pending notification without crediting anyone.
func (uc *ReconciliationUseCase) DismissPending(ctx context.Context, notificationID, note, staffID string) (*domain.Notification, error) {
	n, err := uc.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.State != domain.NotificationStatePendingReview {
		return nil, domain.ErrNotPendingReview
	}

	now := time.Now().UTC()
	n.ResolutionNote = note
	n.ResolvedBy = staffID
	n.ResolvedAt = &now
	if err := uc.transition(ctx, n, domain.NotificationStateDismissed); err != nil {
		return nil, err
	}
	uc.countNotification("dismissed")

	return n, nil
}

// ListPending returns notifications waiting for staff review.
func (uc *ReconciliationUseCase) ListPending(ctx context.Context, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return uc.notifRepo.ListPending(ctx, limit, offset)
}

// GetNotification returns one notification by id.
func (uc *ReconciliationUseCase) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	return uc.notifRepo.GetByID(ctx, id)
}

// RefundInput describes a gateway reversal to record.
type RefundInput struct {
	TenantID    string
	Amount      int64
	ExternalRef string
	Description string
}

// RecordRefund writes an offsetting refund entry for a gateway reversal and
// an audit event, in one transaction. Ledger entries are never edited; this
// keeps the replay invariant permanently valid.
func (uc *ReconciliationUseCase) RecordRefund(ctx context.Context, input RefundInput) (*domain.LedgerEntry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := uc.wallets.DebitInTx(ctx, tx, DebitInput{
		TenantID:    input.TenantID,
		Amount:      input.Amount,
		ExternalRef: input.ExternalRef,
		Kind:        domain.EntryKindRefund,
		Description: input.Description,
	})
	if err != nil {
		return nil, err
	}

	event := &domain.AuditEvent{
		ID:        uc.idGen.Generate(),
		EventType: domain.EventTypeRefundRecorded,
		TenantID:  input.TenantID,
		Amount:    input.Amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	uc.wallets.InvalidateCache(ctx, input.TenantID)

	return entry, nil
}

// TenantHistory is the full financial view the reconciliation surface shows.
type TenantHistory struct {
	Wallet   *domain.WalletAccount
	Entries  []*domain.LedgerEntry
	Invoices []*domain.Invoice
}

// GetTenantHistory returns a tenant's wallet, ledger and invoices.
func (uc *ReconciliationUseCase) GetTenantHistory(ctx context.Context, tenantID string, limit, offset int) (*TenantHistory, error) {
	wallet, err := uc.wallets.GetWallet(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	entries, err := uc.wallets.ListEntries(ctx, ListEntriesInput{TenantID: tenantID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	invoices, err := uc.allocator.invoiceRepo.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &TenantHistory{Wallet: wallet, Entries: entries, Invoices: invoices}, nil
}

// RecoverInFlight resumes notifications stuck mid state machine. A
// notification still in received re-enters matching from the start, since
// redeliveries dedupe against the stored row and would otherwise never move
// it. A crash between credited and allocated replays the allocation using
// the ledger entry's own amount; allocation starts from the invoices'
// current balances, so repeating it is safe and no open invoices is simply
// a no-op.
func (uc *ReconciliationUseCase) RecoverInFlight(ctx context.Context) (int, error) {
	stuck, err := uc.notifRepo.ListInFlight(ctx, 1000)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, n := range stuck {
		uc.logger.WarnCtx(ctx, "recovery required, resuming notification",
			"notification_id", n.ID,
			"gateway_txn_id", n.GatewayTxnID,
			"state", string(n.State),
		)

		if n.State == domain.NotificationStateReceived {
			err = uc.processReceived(ctx, n)
		} else {
			kind := domain.EntryKindCredit
			if n.ResolvedAt != nil {
				kind = domain.EntryKindCreditReconciliation
			}
			err = uc.settle(ctx, n, kind)
		}
		if err != nil {
			uc.logger.ErrorCtx(ctx, "recovery failed",
				"notification_id", n.ID,
				"error", err.Error(),
			)
			continue
		}
		resumed++
		if uc.metrics != nil {
			uc.metrics.RecoveriesResumed.Inc()
		}
	}

	return resumed, nil
}

// settle drives a matched notification to recorded, one durable step at a
// time. It accepts a notification in any non-terminal post-match state so
// the recovery sweep can reuse it. Each step runs under the deadlock
// retrier; a failed attempt restores the in-memory state it started from,
// so the next attempt re-enters the step cleanly.
func (uc *ReconciliationUseCase) settle(ctx context.Context, n *domain.Notification, kind domain.EntryKind) error {
	var allocation *AllocationResult

	if n.State == domain.NotificationStateMatched {
		if err := uc.retry(ctx, func() error {
			if err := uc.stepCredit(ctx, n, kind); err != nil {
				n.State = domain.NotificationStateMatched
				n.LedgerEntryID = ""
				return err
			}
			return nil
		}); err != nil {
			return err
		}
	}

	if n.State == domain.NotificationStateCredited {
		if err := uc.retry(ctx, func() error {
			result, err := uc.stepAllocate(ctx, n)
			if err != nil {
				n.State = domain.NotificationStateCredited
				return err
			}
			allocation = result
			return nil
		}); err != nil {
			return err
		}
	}

	if n.State == domain.NotificationStateAllocated {
		if err := uc.retry(ctx, func() error {
			if err := uc.stepRecord(ctx, n, allocation); err != nil {
				n.State = domain.NotificationStateAllocated
				return err
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

func (uc *ReconciliationUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}

// stepCredit: ledger credit and the credited transition commit together.
// A duplicate reference means the money is already in the ledger (a racing
// delivery path got there first); the state still advances using the
// recorded entry.
func (uc *ReconciliationUseCase) stepCredit(ctx context.Context, n *domain.Notification, kind domain.EntryKind) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := uc.wallets.CreditInTx(ctx, tx, CreditInput{
		TenantID:    n.TenantID,
		Amount:      n.Amount,
		ExternalRef: n.GatewayTxnID,
		Kind:        kind,
		Description: creditDescription(n),
	})
	if err != nil && !errors.Is(err, domain.ErrDuplicateReference) {
		return err
	}

	n.LedgerEntryID = entry.ID
	if err := uc.transitionTx(ctx, tx, n, domain.NotificationStateCredited); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	uc.wallets.InvalidateCache(ctx, n.TenantID)
	if uc.metrics != nil {
		uc.metrics.CreditsRecorded.Inc()
		uc.metrics.CreditAmount.Observe(float64(n.Amount))
	}

	return nil
}

// stepAllocate: the allocation pass and the allocated transition commit
// together, so allocation runs exactly once per credited amount.
func (uc *ReconciliationUseCase) stepAllocate(ctx context.Context, n *domain.Notification) (*AllocationResult, error) {
	entry, err := uc.wallets.walletRepo.GetEntryByID(ctx, n.TenantID, n.LedgerEntryID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := uc.allocator.AllocateInTx(ctx, tx, n.TenantID, entry.Amount, n.GatewayTxnID)
	if err != nil {
		return nil, err
	}

	if err := uc.transitionTx(ctx, tx, n, domain.NotificationStateAllocated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	uc.wallets.InvalidateCache(ctx, n.TenantID)
	if uc.metrics != nil {
		uc.metrics.AllocationsCompleted.Inc()
	}

	return result, nil
}

// stepRecord: the terminal audit record is emitted only after allocation
// completed. When resuming after a crash the in-memory allocation result is
// gone; the affected invoices are reconstructed from the deterministic debit
// references the allocator wrote.
func (uc *ReconciliationUseCase) stepRecord(ctx context.Context, n *domain.Notification, allocation *AllocationResult) error {
	var invoiceIDs []string
	var remainder int64

	if allocation != nil {
		invoiceIDs = allocation.InvoiceIDs()
		remainder = allocation.Remainder
	} else {
		entries, err := uc.wallets.walletRepo.ListEntriesByRefPrefix(ctx, n.TenantID, n.GatewayTxnID+"/alloc/")
		if err != nil {
			return err
		}
		var applied int64
		seen := make(map[string]bool)
		for _, e := range entries {
			applied += e.Amount
			id := invoiceIDFromAllocationRef(e.ExternalRef, n.GatewayTxnID)
			if id != "" && !seen[id] {
				seen[id] = true
				invoiceIDs = append(invoiceIDs, id)
			}
		}
		remainder = n.Amount - applied
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	event := &domain.AuditEvent{
		ID:             uc.idGen.Generate(),
		EventType:      domain.EventTypeReconciliationRecorded,
		NotificationID: n.ID,
		TenantID:       n.TenantID,
		Amount:         n.Amount,
		Source:         n.Source,
		ManualResolved: n.ResolvedAt != nil,
		InvoiceIDs:     invoiceIDs,
		Remainder:      remainder,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return err
	}

	if err := uc.transitionTx(ctx, tx, n, domain.NotificationStateRecorded); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (uc *ReconciliationUseCase) transition(ctx context.Context, n *domain.Notification, to domain.NotificationState) error {
	if !n.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, n.State, to)
	}
	n.State = to
	n.UpdatedAt = time.Now().UTC()
	return uc.notifRepo.Update(ctx, n)
}

func (uc *ReconciliationUseCase) transitionTx(ctx context.Context, tx Transaction, n *domain.Notification, to domain.NotificationState) error {
	if !n.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, n.State, to)
	}
	n.State = to
	n.UpdatedAt = time.Now().UTC()
	return uc.notifRepo.UpdateTx(ctx, tx, n)
}

func (uc *ReconciliationUseCase) countNotification(outcome string) {
	if uc.metrics != nil {
		uc.metrics.NotificationsProcessed.WithLabelValues(outcome).Inc()
	}
}

func creditDescription(n *domain.Notification) string {
	if n.ResolvedAt != nil {
		return fmt.Sprintf("manual reconciliation of %s by %s", n.GatewayTxnID, n.ResolvedBy)
	}
	if n.Source == domain.PaymentSourcePush {
		return fmt.Sprintf("push payment %s", n.GatewayTxnID)
	}
	return fmt.Sprintf("paybill deposit %s", n.GatewayTxnID)
}

// invoiceIDFromAllocationRef parses "<source>/alloc/<invoiceID>[/pen]".
func invoiceIDFromAllocationRef(ref, sourceRef string) string {
	prefix := sourceRef + "/alloc/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	id := strings.TrimPrefix(ref, prefix)
	return strings.TrimSuffix(id, "/pen")
}
