package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// AuditOutboxRepository implements usecase.AuditOutboxRepository. Events are
// inserted in the same transaction as the reconciliation's final step and
// drained by the audit publisher.
type AuditOutboxRepository struct {
	pool *pgxpool.Pool
}

// NewAuditOutboxRepository creates a new AuditOutboxRepository.
func NewAuditOutboxRepository(pool *pgxpool.Pool) *AuditOutboxRepository {
	return &AuditOutboxRepository{pool: pool}
}

// Create inserts an audit event within the caller's transaction.
func (r *AuditOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.AuditEvent) error {
	pgxTx := tx.(*Tx).PgxTx()

	invoiceIDs, err := json.Marshal(event.InvoiceIDs)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx,
		`INSERT INTO audit_outbox
		   (id, event_type, notification_id, tenant_id, amount, source, manual_resolved,
		    invoice_ids, remainder, created_at, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.EventType, event.NotificationID, event.TenantID, event.Amount,
		string(event.Source), event.ManualResolved, invoiceIDs, event.Remainder,
		event.CreatedAt, event.Published)

	return err
}

// GetUnpublished retrieves undelivered events, oldest first.
func (r *AuditOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_type, notification_id, tenant_id, amount, source, manual_resolved,
		        invoice_ids, remainder, created_at, published, published_at
		 FROM audit_outbox
		 WHERE published = false
		 ORDER BY created_at, id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var source string
		var invoiceIDs []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.NotificationID, &e.TenantID, &e.Amount,
			&source, &e.ManualResolved, &invoiceIDs, &e.Remainder,
			&e.CreatedAt, &e.Published, &e.PublishedAt); err != nil {
			return nil, err
		}
		e.Source = domain.PaymentSource(source)
		if len(invoiceIDs) > 0 {
			if err := json.Unmarshal(invoiceIDs, &e.InvoiceIDs); err != nil {
				return nil, err
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// MarkPublished marks an event as delivered.
func (r *AuditOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE audit_outbox SET published = true, published_at = $2 WHERE id = $1`,
		id, publishedAt)

	return err
}
