package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// WalletRepository implements usecase.WalletRepository on PostgreSQL.
// Ledger entries are append-only rows keyed by (tenant_id, external_ref)
// with a uniqueness constraint on that pair; the wallet balance is a single
// row per tenant updated transactionally alongside the entry insert.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// GetWallet retrieves a tenant's wallet.
func (r *WalletRepository) GetWallet(ctx context.Context, tenantID string) (*domain.WalletAccount, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT tenant_id, balance, version, created_at, updated_at
		 FROM wallet_accounts WHERE tenant_id = $1`, tenantID)

	return scanWallet(row)
}

// GetWalletForUpdate retrieves a wallet with a FOR UPDATE row lock, so two
// concurrent credits on one tenant cannot interleave their read/write steps.
func (r *WalletRepository) GetWalletForUpdate(ctx context.Context, tx usecase.Transaction, tenantID string) (*domain.WalletAccount, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx,
		`SELECT tenant_id, balance, version, created_at, updated_at
		 FROM wallet_accounts WHERE tenant_id = $1 FOR UPDATE`, tenantID)

	return scanWallet(row)
}

// UpdateBalance updates the materialized balance and version.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, tenantID string, balance, version int64, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx,
		`UPDATE wallet_accounts SET balance = $2, version = $3, updated_at = $4
		 WHERE tenant_id = $1`, tenantID, balance, version, updatedAt)

	return err
}

// CreateEntry appends a ledger entry. A duplicate (tenant_id, external_ref)
// surfaces as domain.ErrDuplicateReference.
func (r *WalletRepository) CreateEntry(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx,
		`INSERT INTO ledger_entries
		   (id, tenant_id, kind, amount, resulting_balance, external_ref, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.TenantID, string(entry.Kind), entry.Amount,
		entry.ResultingBalance, entry.ExternalRef, entry.Description, entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrDuplicateReference
		}
		return err
	}

	return nil
}

// GetEntryByID retrieves one entry.
func (r *WalletRepository) GetEntryByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, kind, amount, resulting_balance, external_ref, description, created_at
		 FROM ledger_entries WHERE tenant_id = $1 AND id = $2`, tenantID, entryID)

	return scanEntry(row)
}

// GetEntryByExternalRef retrieves the entry recorded for an external reference.
func (r *WalletRepository) GetEntryByExternalRef(ctx context.Context, tenantID, externalRef string) (*domain.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, kind, amount, resulting_balance, external_ref, description, created_at
		 FROM ledger_entries WHERE tenant_id = $1 AND external_ref = $2`, tenantID, externalRef)

	return scanEntry(row)
}

// ListEntries returns entries in creation order. limit <= 0 returns all,
// which the chain verifier relies on.
func (r *WalletRepository) ListEntries(ctx context.Context, tenantID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `SELECT id, tenant_id, kind, amount, resulting_balance, external_ref, description, created_at
		 FROM ledger_entries WHERE tenant_id = $1 ORDER BY created_at, id`
	args := []any{tenantID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListEntriesByRefPrefix returns entries whose external reference starts with
// prefix, in creation order. The recovery path uses this to reconstruct which
// invoices an allocation pass touched.
func (r *WalletRepository) ListEntriesByRefPrefix(ctx context.Context, tenantID, refPrefix string) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, kind, amount, resulting_balance, external_ref, description, created_at
		 FROM ledger_entries
		 WHERE tenant_id = $1 AND external_ref LIKE $2 || '%'
		 ORDER BY created_at, id`, tenantID, refPrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanWallet(row pgx.Row) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	err := row.Scan(&w.TenantID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var kind string
	err := row.Scan(&e.ID, &e.TenantID, &kind, &e.Amount, &e.ResultingBalance,
		&e.ExternalRef, &e.Description, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	e.Kind = domain.EntryKind(kind)
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.TenantID, &kind, &e.Amount, &e.ResultingBalance,
			&e.ExternalRef, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
