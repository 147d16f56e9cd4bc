package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

const invoiceColumns = `id, tenant_id, amount, penalty_amount, amount_paid, penalty_paid, status, due_date, created_at, updated_at`

// openInvoiceFilter selects invoices the allocator may apply funds to.
const openInvoiceFilter = `tenant_id = $1
	AND status IN ('unpaid', 'partially_paid', 'overdue')
	AND (amount + penalty_amount) > (amount_paid + penalty_paid)`

// InvoiceRepository implements usecase.InvoiceRepository on PostgreSQL.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// GetByID retrieves an invoice.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// ListOpenForUpdate returns open invoices ordered by due date ascending,
// row-locked so an allocation pass cannot race another over the same rows.
func (r *InvoiceRepository) ListOpenForUpdate(ctx context.Context, tx usecase.Transaction, tenantID string) ([]*domain.Invoice, error) {
	pgxTx := tx.(*Tx).PgxTx()

	rows, err := pgxTx.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE `+openInvoiceFilter+`
		 ORDER BY due_date, id
		 FOR UPDATE`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// ListOpen returns open invoices without locking, for match-time inspection.
func (r *InvoiceRepository) ListOpen(ctx context.Context, tenantID string) ([]*domain.Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE `+openInvoiceFilter+`
		 ORDER BY due_date, id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// ListByTenant returns a tenant's invoices, newest due first.
func (r *InvoiceRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE tenant_id = $1
		 ORDER BY due_date DESC, id
		 LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// Update persists the paid amounts and status the allocator computed.
func (r *InvoiceRepository) Update(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE invoices
		 SET amount_paid = $2, penalty_paid = $3, status = $4, updated_at = now()
		 WHERE id = $1`,
		invoice.ID, invoice.AmountPaid, invoice.PenaltyPaid, string(invoice.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}

	return nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Amount, &inv.PenaltyAmount,
		&inv.AmountPaid, &inv.PenaltyPaid, &status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	inv.Status = domain.InvoiceStatus(status)
	return &inv, nil
}

func scanInvoices(rows pgx.Rows) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var status string
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.Amount, &inv.PenaltyAmount,
			&inv.AmountPaid, &inv.PenaltyPaid, &status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.Status = domain.InvoiceStatus(status)
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}
