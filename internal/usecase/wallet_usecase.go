package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nyumbapay/paycore/internal/domain"
)

const walletCacheTTL = 30 * time.Second

// WalletUseCase is the ledger store: an append-only transaction log per
// tenant plus a materialized running balance. Entries are written exactly
// once per accepted money movement; corrections are new offsetting entries.
type WalletUseCase struct {
	txManager  TransactionManager
	walletRepo WalletRepository
	idGen      IDGenerator
	cache      Cache // optional balance cache
}

// NewWalletUseCase creates a new WalletUseCase. cache may be nil.
func NewWalletUseCase(txManager TransactionManager, walletRepo WalletRepository, idGen IDGenerator, cache Cache) *WalletUseCase {
	return &WalletUseCase{
		txManager:  txManager,
		walletRepo: walletRepo,
		idGen:      idGen,
		cache:      cache,
	}
}

// CreditInput describes a credit into a tenant's wallet.
type CreditInput struct {
	TenantID    string
	Amount      int64
	ExternalRef string
	Kind        domain.EntryKind
	Description string
}

// DebitInput describes a debit out of a tenant's wallet.
type DebitInput struct {
	TenantID    string
	Amount      int64
	ExternalRef string
	Kind        domain.EntryKind
	Description string
}

// Credit records a credit in its own transaction. A retried delivery with the
// same external reference returns the already-recorded entry together with
// domain.ErrDuplicateReference; callers treat that as a no-op success.
func (uc *WalletUseCase) Credit(ctx context.Context, input CreditInput) (*domain.LedgerEntry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := uc.CreditInTx(ctx, tx, input)
	if err != nil {
		return entry, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	uc.invalidateCache(ctx, input.TenantID)

	return entry, nil
}

// CreditInTx records a credit inside the caller's transaction: read balance,
// write entry with resultingBalance = prior + amount, bump balance and
// version, all atomically. The (tenant, external_ref) uniqueness constraint
// is the idempotency enforcement point.
func (uc *WalletUseCase) CreditInTx(ctx context.Context, tx Transaction, input CreditInput) (*domain.LedgerEntry, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !input.Kind.Valid() || !input.Kind.IsCredit() {
		return nil, domain.ErrInvalidEntryKind
	}
	if input.ExternalRef == "" {
		return nil, fmt.Errorf("%w: credit requires an external reference", domain.ErrInvalidEntryKind)
	}

	wallet, err := uc.walletRepo.GetWalletForUpdate(ctx, tx, input.TenantID)
	if err != nil {
		return nil, err
	}

	// The duplicate check must come before the insert: a unique violation
	// would poison the open transaction, and the wallet row lock already
	// holds off racing writers, so any committed duplicate is visible here.
	if existing, err := uc.duplicateEntry(ctx, input.TenantID, input.ExternalRef); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, domain.ErrDuplicateReference
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:               uc.idGen.Generate(),
		TenantID:         input.TenantID,
		Kind:             input.Kind,
		Amount:           input.Amount,
		ResultingBalance: wallet.Balance + input.Amount,
		ExternalRef:      input.ExternalRef,
		Description:      input.Description,
		CreatedAt:        now,
	}

	if err := uc.walletRepo.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.walletRepo.UpdateBalance(ctx, tx, input.TenantID, entry.ResultingBalance, wallet.Version+1, now); err != nil {
		return nil, err
	}

	return entry, nil
}

// duplicateEntry reports an already-recorded entry for an external reference,
// or nil when the reference is unused.
func (uc *WalletUseCase) duplicateEntry(ctx context.Context, tenantID, externalRef string) (*domain.LedgerEntry, error) {
	if externalRef == "" {
		return nil, nil
	}
	existing, err := uc.walletRepo.GetEntryByExternalRef(ctx, tenantID, externalRef)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return existing, nil
}

// Debit records a debit in its own transaction. Debits never drive the
// balance negative; attempting to do so fails without partial effect.
func (uc *WalletUseCase) Debit(ctx context.Context, input DebitInput) (*domain.LedgerEntry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := uc.DebitInTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	uc.invalidateCache(ctx, input.TenantID)

	return entry, nil
}

// DebitInTx records a debit inside the caller's transaction.
func (uc *WalletUseCase) DebitInTx(ctx context.Context, tx Transaction, input DebitInput) (*domain.LedgerEntry, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !input.Kind.Valid() || input.Kind.IsCredit() {
		return nil, domain.ErrInvalidEntryKind
	}

	wallet, err := uc.walletRepo.GetWalletForUpdate(ctx, tx, input.TenantID)
	if err != nil {
		return nil, err
	}

	if err := wallet.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	if existing, err := uc.duplicateEntry(ctx, input.TenantID, input.ExternalRef); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, domain.ErrDuplicateReference
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:               uc.idGen.Generate(),
		TenantID:         input.TenantID,
		Kind:             input.Kind,
		Amount:           input.Amount,
		ResultingBalance: wallet.Balance - input.Amount,
		ExternalRef:      input.ExternalRef,
		Description:      input.Description,
		CreatedAt:        now,
	}

	if err := uc.walletRepo.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.walletRepo.UpdateBalance(ctx, tx, input.TenantID, entry.ResultingBalance, wallet.Version+1, now); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetWallet returns the current wallet state, served from the cache when warm.
func (uc *WalletUseCase) GetWallet(ctx context.Context, tenantID string) (*domain.WalletAccount, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, walletCacheKey(tenantID)); err == nil && data != nil {
			var wallet domain.WalletAccount
			if err := json.Unmarshal(data, &wallet); err == nil {
				return &wallet, nil
			}
		}
	}

	wallet, err := uc.walletRepo.GetWallet(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(wallet); err == nil {
			_ = uc.cache.Set(ctx, walletCacheKey(tenantID), data, walletCacheTTL)
		}
	}

	return wallet, nil
}

// ListEntriesInput represents input for listing ledger entries.
type ListEntriesInput struct {
	TenantID string
	Limit    int
	Offset   int
}

// ListEntries returns a tenant's ledger entries in creation order.
func (uc *WalletUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	if input.Limit <= 0 {
		input.Limit = 50
	}
	if input.Limit > 500 {
		input.Limit = 500
	}

	return uc.walletRepo.ListEntries(ctx, input.TenantID, input.Limit, input.Offset)
}

// VerifyChain replays every entry for the tenant from zero and checks the
// resulting-balance chain against the wallet's materialized balance.
func (uc *WalletUseCase) VerifyChain(ctx context.Context, tenantID string) error {
	wallet, err := uc.walletRepo.GetWallet(ctx, tenantID)
	if err != nil {
		return err
	}

	entries, err := uc.walletRepo.ListEntries(ctx, tenantID, 0, 0)
	if err != nil {
		return err
	}

	return domain.VerifyEntryChain(entries, wallet.Balance)
}

// InvalidateCache drops the cached balance for a tenant. Exposed for callers
// that commit wallet mutations through their own transaction.
func (uc *WalletUseCase) InvalidateCache(ctx context.Context, tenantID string) {
	uc.invalidateCache(ctx, tenantID)
}

func (uc *WalletUseCase) invalidateCache(ctx context.Context, tenantID string) {
	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, walletCacheKey(tenantID))
	}
}

func walletCacheKey(tenantID string) string {
	return "wallet:" + tenantID
}
