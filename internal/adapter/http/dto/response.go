package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nyumbapay/paycore/internal/domain"
)

// displayAmount renders minor currency units as a two-decimal string for
// human-facing surfaces. The integer field stays authoritative.
func displayAmount(minorUnits int64) string {
	return decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// WalletResponse represents a tenant wallet in API responses.
type WalletResponse struct {
	TenantID       string    `json:"tenant_id"`
	Balance        int64     `json:"balance"`
	BalanceDisplay string    `json:"balance_display"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WalletFromDomain converts a domain wallet to a response.
func WalletFromDomain(w *domain.WalletAccount) *WalletResponse {
	return &WalletResponse{
		TenantID:       w.TenantID,
		Balance:        w.Balance,
		BalanceDisplay: displayAmount(w.Balance),
		Version:        w.Version,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	Kind             string    `json:"kind"`
	Amount           int64     `json:"amount"`
	AmountDisplay    string    `json:"amount_display"`
	ResultingBalance int64     `json:"resulting_balance"`
	ExternalRef      string    `json:"external_ref"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// EntryFromDomain converts a domain ledger entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:               e.ID,
		TenantID:         e.TenantID,
		Kind:             string(e.Kind),
		Amount:           e.Amount,
		AmountDisplay:    displayAmount(e.Amount),
		ResultingBalance: e.ResultingBalance,
		ExternalRef:      e.ExternalRef,
		Description:      e.Description,
		CreatedAt:        e.CreatedAt,
	}
}

// EntriesFromDomain converts domain ledger entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenant_id"`
	Amount            int64     `json:"amount"`
	PenaltyAmount     int64     `json:"penalty_amount"`
	AmountPaid        int64     `json:"amount_paid"`
	PenaltyPaid       int64     `json:"penalty_paid"`
	BalanceDue        int64     `json:"balance_due"`
	BalanceDueDisplay string    `json:"balance_due_display"`
	Status            string    `json:"status"`
	DueDate           time.Time `json:"due_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InvoiceFromDomain converts a domain invoice to a response.
func InvoiceFromDomain(inv *domain.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:                inv.ID,
		TenantID:          inv.TenantID,
		Amount:            inv.Amount,
		PenaltyAmount:     inv.PenaltyAmount,
		AmountPaid:        inv.AmountPaid,
		PenaltyPaid:       inv.PenaltyPaid,
		BalanceDue:        inv.BalanceDue(),
		BalanceDueDisplay: displayAmount(inv.BalanceDue()),
		Status:            string(inv.Status),
		DueDate:           inv.DueDate,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

// InvoicesFromDomain converts domain invoices to responses.
func InvoicesFromDomain(invoices []*domain.Invoice) []*InvoiceResponse {
	result := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		result[i] = InvoiceFromDomain(inv)
	}
	return result
}

// NotificationResponse represents a payment notification and its
// reconciliation state in API responses.
type NotificationResponse struct {
	ID             string     `json:"id"`
	GatewayTxnID   string     `json:"gateway_txn_id"`
	Amount         int64      `json:"amount"`
	AmountDisplay  string     `json:"amount_display"`
	PayerPhone     string     `json:"payer_phone,omitempty"`
	AccountRef     string     `json:"account_ref,omitempty"`
	CorrelationID  string     `json:"correlation_id,omitempty"`
	Source         string     `json:"source"`
	OccurredAt     time.Time  `json:"occurred_at"`
	State          string     `json:"state"`
	TenantID       string     `json:"tenant_id,omitempty"`
	InvoiceID      string     `json:"invoice_id,omitempty"`
	LedgerEntryID  string     `json:"ledger_entry_id,omitempty"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NotificationFromDomain converts a domain notification to a response.
func NotificationFromDomain(n *domain.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:             n.ID,
		GatewayTxnID:   n.GatewayTxnID,
		Amount:         n.Amount,
		AmountDisplay:  displayAmount(n.Amount),
		PayerPhone:     n.PayerPhone,
		AccountRef:     n.AccountRef,
		CorrelationID:  n.CorrelationID,
		Source:         string(n.Source),
		OccurredAt:     n.OccurredAt,
		State:          string(n.State),
		TenantID:       n.TenantID,
		InvoiceID:      n.InvoiceID,
		LedgerEntryID:  n.LedgerEntryID,
		ResolutionNote: n.ResolutionNote,
		ResolvedBy:     n.ResolvedBy,
		ResolvedAt:     n.ResolvedAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}

// NotificationsFromDomain converts domain notifications to responses.
func NotificationsFromDomain(notifications []*domain.Notification) []*NotificationResponse {
	result := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		result[i] = NotificationFromDomain(n)
	}
	return result
}

// ListPendingResponse is a page of notifications awaiting review.
type ListPendingResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
}

// SessionResponse represents a push payment session in API responses.
type SessionResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	Phone         string    `json:"phone"`
	CorrelationID string    `json:"correlation_id"`
	State         string    `json:"state"`
	StatusReason  string    `json:"status_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SessionFromDomain converts a domain push session to a response.
func SessionFromDomain(s *domain.PushPaymentSession) *SessionResponse {
	return &SessionResponse{
		ID:            s.ID,
		TenantID:      s.TenantID,
		Amount:        s.Amount,
		AmountDisplay: displayAmount(s.Amount),
		Phone:         s.Phone,
		CorrelationID: s.CorrelationID,
		State:         string(s.State),
		StatusReason:  s.StatusReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// TenantHistoryResponse is the full financial view for one tenant.
type TenantHistoryResponse struct {
	Wallet   *WalletResponse    `json:"wallet"`
	Entries  []*EntryResponse   `json:"entries"`
	Invoices []*InvoiceResponse `json:"invoices"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
