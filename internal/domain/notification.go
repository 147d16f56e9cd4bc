package domain

import "time"

// NotificationState is the durable position of an inbound payment
// notification in the reconciliation state machine. Every transition is
// persisted before the next step runs, so a restart can resume mid-flight
// notifications.
type NotificationState string

const (
	NotificationStateReceived      NotificationState = "received"
	NotificationStateMatched       NotificationState = "matched"
	NotificationStateUnmatched     NotificationState = "unmatched"
	NotificationStatePendingReview NotificationState = "pending_review"
	NotificationStateCredited      NotificationState = "credited"
	NotificationStateAllocated     NotificationState = "allocated"
	NotificationStateRecorded      NotificationState = "recorded"
	NotificationStateDismissed     NotificationState = "dismissed"
)

// notificationTransitions lists the allowed state machine edges.
var notificationTransitions = map[NotificationState][]NotificationState{
	NotificationStateReceived:      {NotificationStateMatched, NotificationStateUnmatched},
	NotificationStateMatched:       {NotificationStateCredited},
	NotificationStateUnmatched:     {NotificationStatePendingReview},
	NotificationStatePendingReview: {NotificationStateMatched, NotificationStateDismissed},
	NotificationStateCredited:      {NotificationStateAllocated},
	NotificationStateAllocated:     {NotificationStateRecorded},
}

// CanTransition reports whether from -> to is a legal edge.
func (s NotificationState) CanTransition(to NotificationState) bool {
	for _, next := range notificationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the notification needs no further processing.
func (s NotificationState) Terminal() bool {
	return s == NotificationStateRecorded || s == NotificationStateDismissed
}

// PaymentSource distinguishes how the money arrived.
type PaymentSource string

const (
	// PaymentSourcePush is a payment the system requested from the payer's
	// phone, confirmed via a correlation id.
	PaymentSourcePush PaymentSource = "push"
	// PaymentSourceDirect is a payer-initiated paybill deposit, matched
	// after the fact.
	PaymentSourceDirect PaymentSource = "direct"
)

// Notification is an inbound payment event from the gateway plus its
// reconciliation state. The raw payload fields are never mutated after
// matching completes; only the state machine and resolution fields move.
type Notification struct {
	ID            string
	GatewayTxnID  string
	Amount        int64
	PayerPhone    string
	AccountRef    string
	CorrelationID string
	Source        PaymentSource
	OccurredAt    time.Time

	State         NotificationState
	TenantID      string // set once matched or resolved
	InvoiceID     string // set when the match pinned a specific invoice
	LedgerEntryID string // set at credited; proof of what must still be allocated

	// Manual resolution, populated by the reconciliation surface.
	ResolutionNote string
	ResolvedBy     string
	ResolvedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingReview reports whether the notification is waiting on staff.
func (n *Notification) PendingReview() bool {
	return n.State == NotificationStateUnmatched || n.State == NotificationStatePendingReview
}
