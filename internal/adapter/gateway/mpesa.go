// Package gateway holds mobile-money gateway connectors. The production
// deployment points at the operator's STK push API; the simulated connector
// stands in for it in development and tests.
package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nyumbapay/paycore/internal/usecase"
)

// SimulatedGateway accepts every push initiation and reports it pending
// until an outcome is injected. Outcome injection mirrors the operator
// confirming or rejecting the STK prompt on the payer's handset.
type SimulatedGateway struct {
	mu       sync.Mutex
	statuses map[string]usecase.PushStatus
}

// NewSimulatedGateway creates a SimulatedGateway.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{
		statuses: make(map[string]usecase.PushStatus),
	}
}

// InitiatePush registers the push with a synthetic correlation id.
func (g *SimulatedGateway) InitiatePush(_ context.Context, req usecase.PushRequest) (usecase.PushInitiation, error) {
	correlationID := uuid.NewString()

	g.mu.Lock()
	g.statuses[correlationID] = usecase.PushStatus{
		State:  usecase.PushStatusPending,
		Amount: req.Amount,
	}
	g.mu.Unlock()

	return usecase.PushInitiation{CorrelationID: correlationID}, nil
}

// QueryPushStatus reports the current simulated state for a correlation id.
// Unknown ids are reported pending rather than failed so a poll race with
// initiation does not kill a live session.
func (g *SimulatedGateway) QueryPushStatus(_ context.Context, correlationID string) (usecase.PushStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.statuses[correlationID]
	if !ok {
		return usecase.PushStatus{State: usecase.PushStatusPending}, nil
	}
	return status, nil
}

// Complete marks a push as paid by the payer.
func (g *SimulatedGateway) Complete(correlationID, gatewayTxnID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := g.statuses[correlationID]
	status.State = usecase.PushStatusSucceeded
	status.GatewayTxnID = gatewayTxnID
	g.statuses[correlationID] = status
}

// Fail marks a push as rejected or expired on the payer's handset.
func (g *SimulatedGateway) Fail(correlationID, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := g.statuses[correlationID]
	status.State = usecase.PushStatusFailed
	status.Reason = reason
	g.statuses[correlationID] = status
}
