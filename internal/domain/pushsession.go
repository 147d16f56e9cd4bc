package domain

import "time"

// PushSessionState tracks an operator-initiated push payment from
// initiation to a terminal outcome.
type PushSessionState string

const (
	PushSessionInitiated            PushSessionState = "initiated"
	PushSessionAwaitingConfirmation PushSessionState = "awaiting_confirmation"
	PushSessionSucceeded            PushSessionState = "succeeded"
	PushSessionFailed               PushSessionState = "failed"
	PushSessionTimedOut             PushSessionState = "timed_out"
)

// pushTransitions lists the allowed edges. timed_out is deliberately not a
// dead end: a late gateway confirmation must still be able to land.
var pushTransitions = map[PushSessionState][]PushSessionState{
	PushSessionInitiated:            {PushSessionAwaitingConfirmation, PushSessionFailed},
	PushSessionAwaitingConfirmation: {PushSessionSucceeded, PushSessionFailed, PushSessionTimedOut},
	PushSessionTimedOut:             {PushSessionSucceeded, PushSessionFailed},
}

// CanTransition reports whether from -> to is a legal edge.
func (s PushSessionState) CanTransition(to PushSessionState) bool {
	for _, next := range pushTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Settled reports whether the gateway delivered a definitive outcome.
// timed_out is not settled; it means the poll budget ran out while the
// outcome was still unknown.
func (s PushSessionState) Settled() bool {
	return s == PushSessionSucceeded || s == PushSessionFailed
}

// PushPaymentSession is one operator-initiated push request. CorrelationID
// is returned by the gateway at initiation and echoed in its confirmation
// callback, which makes push matching unambiguous by construction.
type PushPaymentSession struct {
	ID            string
	TenantID      string
	Amount        int64
	Phone         string
	CorrelationID string
	State         PushSessionState
	StatusReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
