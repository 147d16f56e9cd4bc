package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

const notificationColumns = `id, gateway_txn_id, amount, payer_phone, account_ref, correlation_id,
	source, occurred_at, state, tenant_id, invoice_id, ledger_entry_id,
	resolution_note, resolved_by, resolved_at, created_at, updated_at`

// NotificationRepository implements usecase.NotificationRepository.
// The state column is the durable position in the reconciliation state
// machine; gateway_txn_id carries a uniqueness constraint for ingestion
// idempotency.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create persists a freshly received notification. A duplicate
// gateway_txn_id surfaces as domain.ErrDuplicateReference.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payment_notifications (`+notificationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		n.ID, n.GatewayTxnID, n.Amount, n.PayerPhone, n.AccountRef, n.CorrelationID,
		string(n.Source), n.OccurredAt, string(n.State), n.TenantID, n.InvoiceID, n.LedgerEntryID,
		n.ResolutionNote, n.ResolvedBy, n.ResolvedAt, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrDuplicateReference
		}
		return err
	}

	return nil
}

// GetByID retrieves a notification.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM payment_notifications WHERE id = $1`, id)
	return scanNotification(row)
}

// GetByGatewayTxnID retrieves a notification by its gateway transaction id.
func (r *NotificationRepository) GetByGatewayTxnID(ctx context.Context, gatewayTxnID string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM payment_notifications WHERE gateway_txn_id = $1`, gatewayTxnID)
	return scanNotification(row)
}

// Update persists state machine and resolution fields. The raw payload
// columns never change after creation.
func (r *NotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	return r.update(ctx, r.pool, n)
}

// UpdateTx is Update inside the caller's transaction.
func (r *NotificationRepository) UpdateTx(ctx context.Context, tx usecase.Transaction, n *domain.Notification) error {
	return r.update(ctx, tx.(*Tx).PgxTx(), n)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *NotificationRepository) update(ctx context.Context, db execer, n *domain.Notification) error {
	tag, err := db.Exec(ctx,
		`UPDATE payment_notifications
		 SET state = $2, tenant_id = $3, invoice_id = $4, ledger_entry_id = $5,
		     resolution_note = $6, resolved_by = $7, resolved_at = $8, updated_at = $9
		 WHERE id = $1`,
		n.ID, string(n.State), n.TenantID, n.InvoiceID, n.LedgerEntryID,
		n.ResolutionNote, n.ResolvedBy, n.ResolvedAt, n.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}

	return nil
}

// ListPending returns notifications waiting for staff review, oldest first.
func (r *NotificationRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM payment_notifications
		 WHERE state IN ('unmatched', 'pending_review')
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListInFlight returns notifications stuck before a resting state, oldest
// first, for the recovery sweep. That includes rows still in received: a
// crash between ingestion and the matched/unmatched transition leaves the
// notification there, and redeliveries dedupe against it without resuming it.
func (r *NotificationRepository) ListInFlight(ctx context.Context, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM payment_notifications
		 WHERE state IN ('received', 'matched', 'credited', 'allocated')
		 ORDER BY created_at, id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var source, state string
	err := row.Scan(&n.ID, &n.GatewayTxnID, &n.Amount, &n.PayerPhone, &n.AccountRef, &n.CorrelationID,
		&source, &n.OccurredAt, &state, &n.TenantID, &n.InvoiceID, &n.LedgerEntryID,
		&n.ResolutionNote, &n.ResolvedBy, &n.ResolvedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	n.Source = domain.PaymentSource(source)
	n.State = domain.NotificationState(state)
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var source, state string
		if err := rows.Scan(&n.ID, &n.GatewayTxnID, &n.Amount, &n.PayerPhone, &n.AccountRef, &n.CorrelationID,
			&source, &n.OccurredAt, &state, &n.TenantID, &n.InvoiceID, &n.LedgerEntryID,
			&n.ResolutionNote, &n.ResolvedBy, &n.ResolvedAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.Source = domain.PaymentSource(source)
		n.State = domain.NotificationState(state)
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}
