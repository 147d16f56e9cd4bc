package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/infrastructure/logging"
	"github.com/nyumbapay/paycore/internal/infrastructure/metrics"
)

// PushPaymentUseCase tracks operator-initiated push requests from initiation
// to a terminal outcome. Polling runs on a background, cancellable timer per
// session and never blocks the request path that initiated the push.
type PushPaymentUseCase struct {
	gateway  PaymentGateway
	sessions SessionRepository
	recon    *ReconciliationUseCase
	tenants  TenantDirectory
	idGen    IDGenerator
	logger   *logging.Logger
	metrics  *metrics.Metrics

	pollInterval time.Duration
	pollBudget   time.Duration

	mu      sync.Mutex
	pollers map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewPushPaymentUseCase creates a new PushPaymentUseCase.
func NewPushPaymentUseCase(
	gateway PaymentGateway,
	sessions SessionRepository,
	recon *ReconciliationUseCase,
	tenants TenantDirectory,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
	pollInterval, pollBudget time.Duration,
) *PushPaymentUseCase {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if pollBudget <= 0 {
		pollBudget = 2 * time.Minute
	}
	return &PushPaymentUseCase{
		gateway:      gateway,
		sessions:     sessions,
		recon:        recon,
		tenants:      tenants,
		idGen:        idGen,
		logger:       logger,
		metrics:      m,
		pollInterval: pollInterval,
		pollBudget:   pollBudget,
		pollers:      make(map[string]context.CancelFunc),
	}
}

// InitiatePushInput describes an operator-initiated push request.
type InitiatePushInput struct {
	TenantID string
	Amount   int64
	Phone    string
}

// InitiatePush hands the request to the gateway, persists the session the
// instant a correlation id comes back, and starts the confirmation poller.
func (uc *PushPaymentUseCase) InitiatePush(ctx context.Context, input InitiatePushInput) (*domain.PushPaymentSession, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	tenant, err := uc.tenants.GetByID(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}

	phone := input.Phone
	if phone == "" {
		phone = tenant.Phone
	}

	initiation, err := uc.gateway.InitiatePush(ctx, PushRequest{
		Phone:     phone,
		Amount:    input.Amount,
		Reference: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.PushPaymentSession{
		ID:            uc.idGen.Generate(),
		TenantID:      input.TenantID,
		Amount:        input.Amount,
		Phone:         phone,
		CorrelationID: initiation.CorrelationID,
		State:         domain.PushSessionInitiated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := uc.transition(ctx, session, domain.PushSessionAwaitingConfirmation, ""); err != nil {
		return nil, err
	}
	if uc.metrics != nil {
		uc.metrics.PushSessionsInitiated.Inc()
	}

	uc.startPoller(session.ID, session.CorrelationID, uc.pollBudget)

	return session, nil
}

// PushCallback is a confirmation delivery from the gateway, carrying the
// correlation id it echoed from initiation.
type PushCallback struct {
	CorrelationID string
	GatewayTxnID  string
	Succeeded     bool
	Reason        string
	Amount        int64
}

// HandleCallback applies a gateway confirmation. A late confirmation for a
// timed-out session still locates the session through the correlation id and
// credits the tenant; a second copy of the same confirmation is a no-op
// because the ledger dedupes on the gateway transaction id.
func (uc *PushPaymentUseCase) HandleCallback(ctx context.Context, cb PushCallback) (*domain.PushPaymentSession, error) {
	session, err := uc.sessions.GetByCorrelationID(ctx, cb.CorrelationID)
	if err != nil {
		return nil, err
	}

	if !cb.Succeeded {
		if session.State.CanTransition(domain.PushSessionFailed) {
			if err := uc.transition(ctx, session, domain.PushSessionFailed, cb.Reason); err != nil {
				return nil, err
			}
			uc.countTerminal("failed")
		}
		uc.stopPoller(session.ID)
		return session, nil
	}

	if session.State.CanTransition(domain.PushSessionSucceeded) {
		if err := uc.transition(ctx, session, domain.PushSessionSucceeded, cb.Reason); err != nil {
			return nil, err
		}
		uc.countTerminal("succeeded")
	}
	uc.stopPoller(session.ID)

	amount := cb.Amount
	if amount == 0 {
		amount = session.Amount
	}

	// Feed the coordinator exactly like a direct deposit would be; the
	// notification path dedupes by gateway transaction id.
	_, err = uc.recon.HandleNotification(ctx, IngestInput{
		GatewayTxnID:  cb.GatewayTxnID,
		Amount:        amount,
		PayerPhone:    session.Phone,
		CorrelationID: cb.CorrelationID,
		Source:        domain.PaymentSourcePush,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// GetSession returns one session by id.
func (uc *PushPaymentUseCase) GetSession(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
	return uc.sessions.GetByID(ctx, id)
}

// CloseSession is the operator giving up on a session. An awaiting session
// moves to timed_out; the poller is cancelled either way. A late gateway
// confirmation can still land afterwards.
func (uc *PushPaymentUseCase) CloseSession(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
	session, err := uc.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.stopPoller(session.ID)

	if session.State == domain.PushSessionAwaitingConfirmation {
		if err := uc.transition(ctx, session, domain.PushSessionTimedOut, "closed by operator"); err != nil {
			return nil, err
		}
		uc.countTerminal("timed_out")
	}

	return session, nil
}

// ResumePolling restarts pollers for sessions left awaiting confirmation by
// a previous process. Sessions already past their poll budget move straight
// to timed_out.
func (uc *PushPaymentUseCase) ResumePolling(ctx context.Context) error {
	awaiting, err := uc.sessions.ListAwaiting(ctx, 1000)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, session := range awaiting {
		deadline := session.CreatedAt.Add(uc.pollBudget)
		if !deadline.After(now) {
			if err := uc.transition(ctx, session, domain.PushSessionTimedOut, "poll budget exhausted"); err != nil {
				uc.logger.ErrorCtx(ctx, "failed to time out stale session",
					"session_id", session.ID, "error", err.Error())
			} else {
				uc.countTerminal("timed_out")
			}
			continue
		}
		uc.startPoller(session.ID, session.CorrelationID, deadline.Sub(now))
	}

	return nil
}

// Shutdown cancels every running poller and waits for them to stop.
func (uc *PushPaymentUseCase) Shutdown() {
	uc.mu.Lock()
	for _, cancel := range uc.pollers {
		cancel()
	}
	uc.pollers = make(map[string]context.CancelFunc)
	uc.mu.Unlock()
	uc.wg.Wait()
}

func (uc *PushPaymentUseCase) startPoller(sessionID, correlationID string, budget time.Duration) {
	pollCtx, cancel := context.WithTimeout(context.Background(), budget)

	uc.mu.Lock()
	uc.pollers[sessionID] = cancel
	uc.mu.Unlock()

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		defer uc.stopPoller(sessionID)
		uc.poll(pollCtx, sessionID, correlationID)
	}()
}

func (uc *PushPaymentUseCase) stopPoller(sessionID string) {
	uc.mu.Lock()
	if cancel, ok := uc.pollers[sessionID]; ok {
		cancel()
		delete(uc.pollers, sessionID)
	}
	uc.mu.Unlock()
}

// poll queries the gateway until a terminal status arrives or the budget
// runs out. Budget exhaustion is timed_out, not failure: a late confirmation
// is still accepted through HandleCallback.
func (uc *PushPaymentUseCase) poll(ctx context.Context, sessionID, correlationID string) {
	ticker := time.NewTicker(uc.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.timeOutSession(sessionID)
			return
		case <-ticker.C:
			status, err := uc.gateway.QueryPushStatus(ctx, correlationID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					uc.timeOutSession(sessionID)
					return
				}
				uc.logger.WarnCtx(ctx, "push status poll failed",
					"session_id", sessionID, "error", err.Error())
				continue
			}

			switch status.State {
			case PushStatusPending:
				continue
			case PushStatusSucceeded, PushStatusFailed:
				// Reuse the callback path so poll-discovered and
				// callback-delivered outcomes behave identically.
				_, err := uc.HandleCallback(context.Background(), PushCallback{
					CorrelationID: correlationID,
					GatewayTxnID:  status.GatewayTxnID,
					Succeeded:     status.State == PushStatusSucceeded,
					Reason:        status.Reason,
					Amount:        status.Amount,
				})
				if err != nil {
					uc.logger.ErrorCtx(ctx, "failed to apply polled push outcome",
						"session_id", sessionID, "error", err.Error())
				}
				return
			}
		}
	}
}

// timeOutSession marks a still-awaiting session timed_out after its budget.
func (uc *PushPaymentUseCase) timeOutSession(sessionID string) {
	ctx := context.Background()
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return
	}
	if session.State != domain.PushSessionAwaitingConfirmation {
		return
	}
	if err := uc.transition(ctx, session, domain.PushSessionTimedOut, "poll budget exhausted"); err == nil {
		uc.countTerminal("timed_out")
	}
}

func (uc *PushPaymentUseCase) transition(ctx context.Context, s *domain.PushPaymentSession, to domain.PushSessionState, reason string) error {
	if !s.State.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	s.State = to
	if reason != "" {
		s.StatusReason = reason
	}
	s.UpdatedAt = time.Now().UTC()
	return uc.sessions.Update(ctx, s)
}

func (uc *PushPaymentUseCase) countTerminal(state string) {
	if uc.metrics != nil {
		uc.metrics.PushSessionsTerminal.WithLabelValues(state).Inc()
	}
}
