package domain

import "time"

// Audit event types published to the audit sink.
const (
	EventTypeReconciliationRecorded = "reconciliation.recorded"
	EventTypeRefundRecorded         = "reconciliation.refunded"
)

// AuditEvent is the terminal record of a completed reconciliation, written to
// an outbox in the same transaction as the final state transition and
// delivered to the audit sink by a background publisher. Exactly one event is
// emitted per completed reconciliation, and only after allocation completes.
type AuditEvent struct {
	ID             string
	EventType      string
	NotificationID string
	TenantID       string
	Amount         int64
	Source         PaymentSource
	ManualResolved bool
	InvoiceIDs     []string
	Remainder      int64
	CreatedAt      time.Time
	Published      bool
	PublishedAt    *time.Time
}

// TenantProfile is the slice of tenant data the matcher needs: the paybill
// account reference assigned to the tenant and the registered M-Pesa phone.
// Tenant CRUD lives outside this core; this is a read-only projection.
type TenantProfile struct {
	TenantID   string
	Phone      string
	AccountRef string
}
