package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

func TestLedgerDuplicateReference(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB, e := setupEnv(t, ctx)

	testDB.SeedTenant(ctx, "tnt_dup", "+254700000010", "UNIT-10A")

	first, err := e.walletUC.Credit(ctx, usecase.CreditInput{
		TenantID:    "tnt_dup",
		Amount:      25000,
		ExternalRef: "MPE100001",
		Kind:        domain.EntryKindCredit,
	})
	if err != nil {
		t.Fatalf("first credit failed: %v", err)
	}

	second, err := e.walletUC.Credit(ctx, usecase.CreditInput{
		TenantID:    "tnt_dup",
		Amount:      25000,
		ExternalRef: "MPE100001",
		Kind:        domain.EntryKindCredit,
	})
	if !errors.Is(err, domain.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Errorf("expected the original entry back on duplicate, got %+v", second)
	}

	wallet, err := e.walletUC.GetWallet(ctx, "tnt_dup")
	if err != nil {
		t.Fatalf("failed to get wallet: %v", err)
	}
	if wallet.Balance != 25000 {
		t.Errorf("expected balance 25000 after duplicate credit, got %d", wallet.Balance)
	}
}

func TestLedgerChainVerification(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB, e := setupEnv(t, ctx)

	testDB.SeedTenant(ctx, "tnt_chain", "+254700000011", "UNIT-11B")

	credits := []struct {
		amount int64
		ref    string
	}{
		{40000, "MPE100010"},
		{15000, "MPE100011"},
		{500, "MPE100012"},
	}
	for _, c := range credits {
		if _, err := e.walletUC.Credit(ctx, usecase.CreditInput{
			TenantID:    "tnt_chain",
			Amount:      c.amount,
			ExternalRef: c.ref,
			Kind:        domain.EntryKindCredit,
		}); err != nil {
			t.Fatalf("credit %s failed: %v", c.ref, err)
		}
	}

	if _, err := e.walletUC.Debit(ctx, usecase.DebitInput{
		TenantID:    "tnt_chain",
		Amount:      30000,
		ExternalRef: "MPE100010/alloc/inv_x",
		Kind:        domain.EntryKindDebitInvoice,
	}); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	if err := e.walletUC.VerifyChain(ctx, "tnt_chain"); err != nil {
		t.Fatalf("chain verification failed: %v", err)
	}

	wallet, err := e.walletUC.GetWallet(ctx, "tnt_chain")
	if err != nil {
		t.Fatalf("failed to get wallet: %v", err)
	}
	if wallet.Balance != 25500 {
		t.Errorf("expected balance 25500, got %d", wallet.Balance)
	}

	entries, err := e.walletUC.ListEntries(ctx, usecase.ListEntriesInput{TenantID: "tnt_chain", Limit: 10})
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	last := entries[len(entries)-1]
	if last.ResultingBalance != wallet.Balance {
		t.Errorf("last entry resulting balance %d does not match wallet %d",
			last.ResultingBalance, wallet.Balance)
	}
}

func TestLedgerRejectsOverdraft(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB, e := setupEnv(t, ctx)

	testDB.SeedTenant(ctx, "tnt_over", "+254700000012", "UNIT-12C")

	if _, err := e.walletUC.Credit(ctx, usecase.CreditInput{
		TenantID:    "tnt_over",
		Amount:      10000,
		ExternalRef: "MPE100020",
		Kind:        domain.EntryKindCredit,
	}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	_, err := e.walletUC.Debit(ctx, usecase.DebitInput{
		TenantID:    "tnt_over",
		Amount:      10001,
		ExternalRef: "refund-1",
		Kind:        domain.EntryKindRefund,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	wallet, err := e.walletUC.GetWallet(ctx, "tnt_over")
	if err != nil {
		t.Fatalf("failed to get wallet: %v", err)
	}
	if wallet.Balance != 10000 {
		t.Errorf("expected balance untouched at 10000, got %d", wallet.Balance)
	}
}
