package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
	"github.com/nyumbapay/paycore/internal/usecase/mocks"
)

func newWalletUC(repo *mocks.MockWalletRepository) *usecase.WalletUseCase {
	return usecase.NewWalletUseCase(
		&mocks.MockTxManager{},
		repo,
		&mocks.MockIDGenerator{Prefix: "led"},
		nil,
	)
}

func TestWalletUseCase_Credit(t *testing.T) {
	ctx := context.Background()

	t.Run("successful credit", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1", Balance: 5000, Version: 2})
		uc := newWalletUC(repo)

		entry, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      10000,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.ResultingBalance != 15000 {
			t.Errorf("resulting balance = %d, want 15000", entry.ResultingBalance)
		}

		wallet, err := uc.GetWallet(ctx, "tnt_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wallet.Balance != 15000 {
			t.Errorf("wallet balance = %d, want 15000", wallet.Balance)
		}
		if wallet.Version != 3 {
			t.Errorf("wallet version = %d, want 3", wallet.Version)
		}
	})

	t.Run("duplicate reference returns recorded entry", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1"})
		uc := newWalletUC(repo)

		first, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      10000,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      10000,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if !errors.Is(err, domain.ErrDuplicateReference) {
			t.Fatalf("expected ErrDuplicateReference, got %v", err)
		}
		if second == nil || second.ID != first.ID {
			t.Errorf("expected original entry back, got %+v", second)
		}
		if len(repo.Entries()) != 1 {
			t.Errorf("expected a single entry, got %d", len(repo.Entries()))
		}
	})

	t.Run("duplicate is detected before the insert", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1"})
		uc := newWalletUC(repo)

		first, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      10000,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// A second insert for the same reference would abort the enclosing
		// database transaction, so the duplicate must never reach the repo.
		inserts := 0
		repo.CreateEntryFunc = func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
			inserts++
			return domain.ErrDuplicateReference
		}

		second, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      10000,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if !errors.Is(err, domain.ErrDuplicateReference) {
			t.Fatalf("expected ErrDuplicateReference, got %v", err)
		}
		if second == nil || second.ID != first.ID {
			t.Errorf("expected original entry back, got %+v", second)
		}
		if inserts != 0 {
			t.Errorf("insert attempts = %d, want 0", inserts)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1"})
		uc := newWalletUC(repo)

		_, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      0,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects debit kind", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1"})
		uc := newWalletUC(repo)

		_, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_1",
			Amount:      100,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindRefund,
		})
		if !errors.Is(err, domain.ErrInvalidEntryKind) {
			t.Errorf("expected ErrInvalidEntryKind, got %v", err)
		}
	})

	t.Run("rejects empty external reference", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1"})
		uc := newWalletUC(repo)

		_, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID: "tnt_1",
			Amount:   100,
			Kind:     domain.EntryKindCredit,
		})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("unknown wallet", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		uc := newWalletUC(repo)

		_, err := uc.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_missing",
			Amount:      100,
			ExternalRef: "MPE001",
			Kind:        domain.EntryKindCredit,
		})
		if !errors.Is(err, domain.ErrWalletNotFound) {
			t.Errorf("expected ErrWalletNotFound, got %v", err)
		}
	})
}

func TestWalletUseCase_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("successful debit", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1", Balance: 10000})
		uc := newWalletUC(repo)

		entry, err := uc.Debit(ctx, usecase.DebitInput{
			TenantID:    "tnt_1",
			Amount:      4000,
			ExternalRef: "MPE001/alloc/inv_1",
			Kind:        domain.EntryKindDebitInvoice,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.ResultingBalance != 6000 {
			t.Errorf("resulting balance = %d, want 6000", entry.ResultingBalance)
		}
	})

	t.Run("insufficient funds leave no trace", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1", Balance: 1000})
		uc := newWalletUC(repo)

		_, err := uc.Debit(ctx, usecase.DebitInput{
			TenantID:    "tnt_1",
			Amount:      1001,
			ExternalRef: "refund-1",
			Kind:        domain.EntryKindRefund,
		})
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		if len(repo.Entries()) != 0 {
			t.Errorf("expected no entries, got %d", len(repo.Entries()))
		}
	})

	t.Run("rejects credit kind", func(t *testing.T) {
		repo := mocks.NewMockWalletRepository()
		repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1", Balance: 1000})
		uc := newWalletUC(repo)

		_, err := uc.Debit(ctx, usecase.DebitInput{
			TenantID:    "tnt_1",
			Amount:      100,
			ExternalRef: "x",
			Kind:        domain.EntryKindCredit,
		})
		if !errors.Is(err, domain.ErrInvalidEntryKind) {
			t.Errorf("expected ErrInvalidEntryKind, got %v", err)
		}
	})
}

func TestWalletUseCase_VerifyChain(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockWalletRepository()
	repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1"})
	uc := newWalletUC(repo)

	if _, err := uc.Credit(ctx, usecase.CreditInput{
		TenantID: "tnt_1", Amount: 10000, ExternalRef: "MPE001", Kind: domain.EntryKindCredit,
	}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := uc.Debit(ctx, usecase.DebitInput{
		TenantID: "tnt_1", Amount: 3000, ExternalRef: "MPE001/alloc/inv_1", Kind: domain.EntryKindDebitInvoice,
	}); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	if err := uc.VerifyChain(ctx, "tnt_1"); err != nil {
		t.Errorf("chain verification failed: %v", err)
	}
}

func TestWalletUseCase_GetWalletCaching(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockWalletRepository()
	repo.SeedWallet(&domain.WalletAccount{TenantID: "tnt_1", Balance: 7000})
	cache := mocks.NewMockCache()
	uc := usecase.NewWalletUseCase(&mocks.MockTxManager{}, repo, &mocks.MockIDGenerator{}, cache)

	// Warm the cache.
	if _, err := uc.GetWallet(ctx, "tnt_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := 0
	repo.GetWalletFunc = func(ctx context.Context, tenantID string) (*domain.WalletAccount, error) {
		calls++
		return &domain.WalletAccount{TenantID: tenantID, Balance: 7000}, nil
	}

	wallet, err := uc.GetWallet(ctx, "tnt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.Balance != 7000 {
		t.Errorf("balance = %d, want 7000", wallet.Balance)
	}
	if calls != 0 {
		t.Errorf("expected cache hit, repository was called %d times", calls)
	}

	// Invalidation forces the next read back to the repository.
	uc.InvalidateCache(ctx, "tnt_1")
	if _, err := uc.GetWallet(ctx, "tnt_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected repository read after invalidation, got %d calls", calls)
	}
}
