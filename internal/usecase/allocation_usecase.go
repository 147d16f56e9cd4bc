package usecase

import (
	"context"
	"fmt"

	"github.com/nyumbapay/paycore/internal/domain"
)

// InvoiceApplication records how much of an allocation landed on one invoice.
type InvoiceApplication struct {
	InvoiceID        string
	Applied          int64
	AppliedPenalty   int64
	AppliedPrincipal int64
	NewStatus        domain.InvoiceStatus
	NewBalanceDue    int64
}

// AllocationResult is the outcome of one allocation pass.
type AllocationResult struct {
	Applied   []InvoiceApplication
	Remainder int64
}

// AllocatedTotal is the sum applied across invoices.
func (r *AllocationResult) AllocatedTotal() int64 {
	var total int64
	for _, a := range r.Applied {
		total += a.Applied
	}
	return total
}

// InvoiceIDs lists the invoices the pass touched, in application order.
func (r *AllocationResult) InvoiceIDs() []string {
	ids := make([]string, 0, len(r.Applied))
	for _, a := range r.Applied {
		ids = append(ids, a.InvoiceID)
	}
	return ids
}

// AllocationUseCase distributes an available wallet amount across a tenant's
// open invoices: oldest due date first, penalty before principal within an
// invoice. The pass is deterministic and always starts from the invoices'
// current balances, which makes repeating it after a crash safe.
type AllocationUseCase struct {
	invoiceRepo InvoiceRepository
	wallets     *WalletUseCase
}

// NewAllocationUseCase creates a new AllocationUseCase.
func NewAllocationUseCase(invoiceRepo InvoiceRepository, wallets *WalletUseCase) *AllocationUseCase {
	return &AllocationUseCase{
		invoiceRepo: invoiceRepo,
		wallets:     wallets,
	}
}

// AllocateInTx runs one allocation pass inside the caller's transaction.
// sourceRef keys the wallet debit entries: every applied slice is debited as
// "<sourceRef>/alloc/<invoiceID>" (plus "/pen" for the penalty part), so the
// ledger records exactly where credited money went and a repeated pass over
// the same source cannot double-debit. Having no open invoices is a no-op
// that returns the full amount as remainder.
func (uc *AllocationUseCase) AllocateInTx(ctx context.Context, tx Transaction, tenantID string, available int64, sourceRef string) (*AllocationResult, error) {
	if available < 0 {
		return nil, domain.ErrInvalidAmount
	}

	result := &AllocationResult{Remainder: available}
	if available == 0 {
		return result, nil
	}

	invoices, err := uc.invoiceRepo.ListOpenForUpdate(ctx, tx, tenantID)
	if err != nil {
		return nil, err
	}

	remaining := available
	for _, inv := range invoices {
		if remaining == 0 {
			break
		}

		penalty, principal := inv.ApplyPayment(remaining)
		applied := penalty + principal
		if applied == 0 {
			continue
		}
		remaining -= applied

		if err := uc.invoiceRepo.Update(ctx, tx, inv); err != nil {
			return nil, err
		}

		if penalty > 0 {
			_, err := uc.wallets.DebitInTx(ctx, tx, DebitInput{
				TenantID:    tenantID,
				Amount:      penalty,
				ExternalRef: fmt.Sprintf("%s/alloc/%s/pen", sourceRef, inv.ID),
				Kind:        domain.EntryKindDebitPenalty,
				Description: fmt.Sprintf("penalty on invoice %s", inv.ID),
			})
			if err != nil {
				return nil, err
			}
		}
		if principal > 0 {
			_, err := uc.wallets.DebitInTx(ctx, tx, DebitInput{
				TenantID:    tenantID,
				Amount:      principal,
				ExternalRef: fmt.Sprintf("%s/alloc/%s", sourceRef, inv.ID),
				Kind:        domain.EntryKindDebitInvoice,
				Description: fmt.Sprintf("applied to invoice %s", inv.ID),
			})
			if err != nil {
				return nil, err
			}
		}

		result.Applied = append(result.Applied, InvoiceApplication{
			InvoiceID:        inv.ID,
			Applied:          applied,
			AppliedPenalty:   penalty,
			AppliedPrincipal: principal,
			NewStatus:        inv.Status,
			NewBalanceDue:    inv.BalanceDue(),
		})
	}

	result.Remainder = remaining

	return result, nil
}
