package domain

import "testing"

func TestInvoice_ApplyPayment(t *testing.T) {
	tests := []struct {
		name           string
		invoice        Invoice
		available      int64
		wantPenalty    int64
		wantPrincipal  int64
		wantStatus     InvoiceStatus
		wantBalanceDue int64
	}{
		{
			name: "penalty settles before principal",
			invoice: Invoice{
				Amount:        50000,
				PenaltyAmount: 2000,
				Status:        InvoiceStatusOverdue,
			},
			available:      3000,
			wantPenalty:    2000,
			wantPrincipal:  1000,
			wantStatus:     InvoiceStatusOverdue,
			wantBalanceDue: 49000,
		},
		{
			name: "full settlement marks paid",
			invoice: Invoice{
				Amount:        50000,
				PenaltyAmount: 2000,
				Status:        InvoiceStatusOverdue,
			},
			available:      52000,
			wantPenalty:    2000,
			wantPrincipal:  50000,
			wantStatus:     InvoiceStatusPaid,
			wantBalanceDue: 0,
		},
		{
			name: "partial payment on unpaid invoice",
			invoice: Invoice{
				Amount: 30000,
				Status: InvoiceStatusUnpaid,
			},
			available:      10000,
			wantPrincipal:  10000,
			wantStatus:     InvoiceStatusPartiallyPaid,
			wantBalanceDue: 20000,
		},
		{
			name: "excess is not absorbed",
			invoice: Invoice{
				Amount: 30000,
				Status: InvoiceStatusUnpaid,
			},
			available:      100000,
			wantPrincipal:  30000,
			wantStatus:     InvoiceStatusPaid,
			wantBalanceDue: 0,
		},
		{
			name: "nothing applied to a paid invoice",
			invoice: Invoice{
				Amount:     30000,
				AmountPaid: 30000,
				Status:     InvoiceStatusPaid,
			},
			available:      5000,
			wantStatus:     InvoiceStatusPaid,
			wantBalanceDue: 0,
		},
		{
			name: "nothing applied to a cancelled invoice",
			invoice: Invoice{
				Amount: 30000,
				Status: InvoiceStatusCancelled,
			},
			available:      5000,
			wantStatus:     InvoiceStatusCancelled,
			wantBalanceDue: 30000,
		},
		{
			name: "zero available is a no-op",
			invoice: Invoice{
				Amount: 30000,
				Status: InvoiceStatusUnpaid,
			},
			available:      0,
			wantStatus:     InvoiceStatusUnpaid,
			wantBalanceDue: 30000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := tt.invoice

			penalty, principal := inv.ApplyPayment(tt.available)

			if penalty != tt.wantPenalty {
				t.Errorf("applied penalty = %d, want %d", penalty, tt.wantPenalty)
			}
			if principal != tt.wantPrincipal {
				t.Errorf("applied principal = %d, want %d", principal, tt.wantPrincipal)
			}
			if inv.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", inv.Status, tt.wantStatus)
			}
			if inv.BalanceDue() != tt.wantBalanceDue {
				t.Errorf("balance due = %d, want %d", inv.BalanceDue(), tt.wantBalanceDue)
			}
			if inv.BalanceDue() < 0 {
				t.Error("balance due went negative")
			}
		})
	}
}

func TestInvoice_Open(t *testing.T) {
	tests := []struct {
		name    string
		invoice Invoice
		want    bool
	}{
		{"unpaid with balance", Invoice{Amount: 100, Status: InvoiceStatusUnpaid}, true},
		{"overdue with balance", Invoice{Amount: 100, Status: InvoiceStatusOverdue}, true},
		{"partially paid", Invoice{Amount: 100, AmountPaid: 50, Status: InvoiceStatusPartiallyPaid}, true},
		{"paid", Invoice{Amount: 100, AmountPaid: 100, Status: InvoiceStatusPaid}, false},
		{"cancelled", Invoice{Amount: 100, Status: InvoiceStatusCancelled}, false},
		{"unpaid but nothing due", Invoice{Amount: 0, Status: InvoiceStatusUnpaid}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invoice.Open(); got != tt.want {
				t.Errorf("Open() = %v, want %v", got, tt.want)
			}
		})
	}
}
