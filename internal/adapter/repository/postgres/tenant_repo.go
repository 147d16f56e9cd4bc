package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyumbapay/paycore/internal/domain"
)

// TenantRepository implements usecase.TenantDirectory against the tenants
// projection table. Tenant CRUD is owned outside this core; this repository
// only reads the fields matching needs.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// GetByID retrieves one tenant profile.
func (r *TenantRepository) GetByID(ctx context.Context, tenantID string) (*domain.TenantProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT tenant_id, phone, account_ref FROM tenants WHERE tenant_id = $1`, tenantID)
	return scanTenant(row)
}

// FindByAccountRef finds the tenant assigned a paybill account reference.
// account_ref is unique, so a hit is always unambiguous.
func (r *TenantRepository) FindByAccountRef(ctx context.Context, accountRef string) (*domain.TenantProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT tenant_id, phone, account_ref FROM tenants WHERE account_ref = $1`, accountRef)
	return scanTenant(row)
}

// FindByPhone finds every tenant registered with a phone number. More than
// one hit means the matcher must treat the notification as ambiguous.
func (r *TenantRepository) FindByPhone(ctx context.Context, phone string) ([]*domain.TenantProfile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tenant_id, phone, account_ref FROM tenants WHERE phone = $1 ORDER BY tenant_id`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.TenantProfile
	for rows.Next() {
		var p domain.TenantProfile
		if err := rows.Scan(&p.TenantID, &p.Phone, &p.AccountRef); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

func scanTenant(row pgx.Row) (*domain.TenantProfile, error) {
	var p domain.TenantProfile
	err := row.Scan(&p.TenantID, &p.Phone, &p.AccountRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &p, nil
}
