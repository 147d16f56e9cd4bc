package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyumbapay/paycore/internal/domain"
)

const sessionColumns = `id, tenant_id, amount, phone, correlation_id, state, status_reason, created_at, updated_at`

// SessionRepository implements usecase.SessionRepository on PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create persists a new push payment session.
func (r *SessionRepository) Create(ctx context.Context, s *domain.PushPaymentSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO push_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.TenantID, s.Amount, s.Phone, s.CorrelationID,
		string(s.State), s.StatusReason, s.CreatedAt, s.UpdatedAt)

	return err
}

// GetByID retrieves a session.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM push_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByCorrelationID retrieves a session by the gateway's correlation id.
// Works regardless of state, which is what lets a late confirmation find a
// timed-out session.
func (r *SessionRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.PushPaymentSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM push_sessions WHERE correlation_id = $1`, correlationID)
	return scanSession(row)
}

// Update persists state and reason.
func (r *SessionRepository) Update(ctx context.Context, s *domain.PushPaymentSession) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE push_sessions SET state = $2, status_reason = $3, updated_at = $4 WHERE id = $1`,
		s.ID, string(s.State), s.StatusReason, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

// ListAwaiting returns sessions still waiting on a gateway outcome.
func (r *SessionRepository) ListAwaiting(ctx context.Context, limit int) ([]*domain.PushPaymentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM push_sessions
		 WHERE state = 'awaiting_confirmation'
		 ORDER BY created_at, id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.PushPaymentSession
	for rows.Next() {
		var s domain.PushPaymentSession
		var state string
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Amount, &s.Phone, &s.CorrelationID,
			&state, &s.StatusReason, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.State = domain.PushSessionState(state)
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*domain.PushPaymentSession, error) {
	var s domain.PushPaymentSession
	var state string
	err := row.Scan(&s.ID, &s.TenantID, &s.Amount, &s.Phone, &s.CorrelationID,
		&state, &s.StatusReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	s.State = domain.PushSessionState(state)
	return &s, nil
}
