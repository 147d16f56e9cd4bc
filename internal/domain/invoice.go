package domain

import "time"

// InvoiceStatus tracks an invoice through its payment lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "unpaid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	// InvoiceStatusCancelled is a terminal override set outside this core.
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a tenant's bill. Principal (rent and charges) and penalty are
// tracked separately so allocation can settle penalty first. All amounts are
// integer minor currency units.
type Invoice struct {
	ID            string
	TenantID      string
	Amount        int64 // principal total
	PenaltyAmount int64 // accrued penalty total
	AmountPaid    int64 // paid against principal
	PenaltyPaid   int64 // paid against penalty
	Status        InvoiceStatus
	DueDate       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalAmount is the full amount owed, principal plus penalty.
func (i *Invoice) TotalAmount() int64 {
	return i.Amount + i.PenaltyAmount
}

// TotalPaid is everything paid so far.
func (i *Invoice) TotalPaid() int64 {
	return i.AmountPaid + i.PenaltyPaid
}

// BalanceDue is the remaining amount owed. It is derived, never stored
// independently, and never negative.
func (i *Invoice) BalanceDue() int64 {
	return i.TotalAmount() - i.TotalPaid()
}

// PenaltyDue is the remaining penalty owed.
func (i *Invoice) PenaltyDue() int64 {
	return i.PenaltyAmount - i.PenaltyPaid
}

// PrincipalDue is the remaining principal owed.
func (i *Invoice) PrincipalDue() int64 {
	return i.Amount - i.AmountPaid
}

// Open reports whether the invoice can still receive allocations.
func (i *Invoice) Open() bool {
	switch i.Status {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return i.BalanceDue() > 0
	}
	return false
}

// ApplyPayment applies up to available against the invoice, penalty before
// principal, and transitions the status. It returns the penalty and principal
// portions actually applied. The invoice is left with BalanceDue >= 0 always.
func (i *Invoice) ApplyPayment(available int64) (appliedPenalty, appliedPrincipal int64) {
	if available <= 0 || !i.Open() {
		return 0, 0
	}

	appliedPenalty = min64(available, i.PenaltyDue())
	i.PenaltyPaid += appliedPenalty
	available -= appliedPenalty

	appliedPrincipal = min64(available, i.PrincipalDue())
	i.AmountPaid += appliedPrincipal

	if i.BalanceDue() == 0 {
		i.Status = InvoiceStatusPaid
	} else if appliedPenalty+appliedPrincipal > 0 && i.Status == InvoiceStatusUnpaid {
		i.Status = InvoiceStatusPartiallyPaid
	}
	// An overdue invoice stays overdue until settled; the overdue flagging
	// itself is owned by invoice-issuance logic outside this core.

	return appliedPenalty, appliedPrincipal
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
