package domain

import (
	"fmt"
	"time"
)

// EntryKind classifies a ledger entry. The set is closed and local to the
// reconciliation core; the sign of the movement is implied by the kind.
type EntryKind string

const (
	// EntryKindCredit is a credit from an automatically matched payment.
	EntryKindCredit EntryKind = "credit"
	// EntryKindCreditReconciliation is a credit applied by staff through
	// the manual reconciliation surface.
	EntryKindCreditReconciliation EntryKind = "credit_reconciliation"
	// EntryKindDebitInvoice is a debit applying wallet funds to an invoice.
	EntryKindDebitInvoice EntryKind = "debit_invoice"
	// EntryKindDebitPenalty is a debit applying wallet funds to an invoice penalty.
	EntryKindDebitPenalty EntryKind = "debit_penalty"
	// EntryKindRefund is an offsetting entry for a gateway reversal.
	// Corrections are always new entries, never edits.
	EntryKindRefund EntryKind = "refund"
)

// IsCredit reports whether the kind increases the wallet balance.
func (k EntryKind) IsCredit() bool {
	return k == EntryKindCredit || k == EntryKindCreditReconciliation
}

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryKindCredit, EntryKindCreditReconciliation,
		EntryKindDebitInvoice, EntryKindDebitPenalty, EntryKindRefund:
		return true
	}
	return false
}

// WalletAccount holds a tenant's running balance of unapplied funds.
// The balance is derived from ledger entries and is never mutated directly.
// Amounts are integer minor currency units.
type WalletAccount struct {
	TenantID  string
	Balance   int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDebit checks that the wallet can be debited by amount.
func (w *WalletAccount) ValidateDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Balance-amount < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// LedgerEntry is one immutable record of money moving into or out of a
// tenant's wallet. Amount is always positive; direction comes from Kind.
// ExternalRef is the gateway transaction id (or receipt number) and is
// unique per tenant, which is the idempotency enforcement point.
type LedgerEntry struct {
	ID               string
	TenantID         string
	Kind             EntryKind
	Amount           int64
	ResultingBalance int64
	ExternalRef      string
	Description      string
	CreatedAt        time.Time
}

// SignedAmount returns the amount with the sign implied by the entry kind.
func (e *LedgerEntry) SignedAmount() int64 {
	if e.Kind.IsCredit() {
		return e.Amount
	}
	return -e.Amount
}

// VerifyEntryChain replays entries in creation order from a zero balance and
// checks every resulting-balance link. The final sum must equal balance.
// This is a standing invariant of the ledger, not just a startup check.
func VerifyEntryChain(entries []*LedgerEntry, balance int64) error {
	var running int64
	for _, e := range entries {
		running += e.SignedAmount()
		if running != e.ResultingBalance {
			return fmt.Errorf("%w: entry %s recorded balance %d, replay gives %d",
				ErrLedgerChainBroken, e.ID, e.ResultingBalance, running)
		}
		if running < 0 {
			return fmt.Errorf("%w: entry %s drives balance negative", ErrLedgerChainBroken, e.ID)
		}
	}
	if running != balance {
		return fmt.Errorf("%w: wallet balance %d, replayed sum %d", ErrLedgerChainBroken, balance, running)
	}
	return nil
}
