package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTxManager is a mock implementation of TransactionManager.
type MockTxManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func (m *MockTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockIDGenerator generates sequential IDs for deterministic tests.
type MockIDGenerator struct {
	mu      sync.Mutex
	Prefix  string
	counter int
}

func (m *MockIDGenerator) Generate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	prefix := m.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s_%04d", prefix, m.counter)
}

// MockWalletRepository is an in-memory mock of WalletRepository. Default
// behavior enforces the same (tenant, external_ref) uniqueness the real
// repository gets from its constraint.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*domain.WalletAccount
	entries []*domain.LedgerEntry

	GetWalletFunc          func(ctx context.Context, tenantID string) (*domain.WalletAccount, error)
	GetWalletForUpdateFunc func(ctx context.Context, tx usecase.Transaction, tenantID string) (*domain.WalletAccount, error)
	UpdateBalanceFunc      func(ctx context.Context, tx usecase.Transaction, tenantID string, balance, version int64, updatedAt time.Time) error
	CreateEntryFunc        func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make(map[string]*domain.WalletAccount),
	}
}

// SeedWallet installs a wallet for a tenant.
func (m *MockWalletRepository) SeedWallet(w *domain.WalletAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[w.TenantID] = w
}

// Entries returns all recorded entries in creation order.
func (m *MockWalletRepository) Entries() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *MockWalletRepository) GetWallet(ctx context.Context, tenantID string) (*domain.WalletAccount, error) {
	if m.GetWalletFunc != nil {
		return m.GetWalletFunc(ctx, tenantID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[tenantID]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, domain.ErrWalletNotFound
}

func (m *MockWalletRepository) GetWalletForUpdate(ctx context.Context, tx usecase.Transaction, tenantID string) (*domain.WalletAccount, error) {
	if m.GetWalletForUpdateFunc != nil {
		return m.GetWalletForUpdateFunc(ctx, tx, tenantID)
	}
	return m.GetWallet(ctx, tenantID)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, tenantID string, balance, version int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, tenantID, balance, version, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[tenantID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	w.Balance = balance
	w.Version = version
	w.UpdatedAt = updatedAt
	return nil
}

func (m *MockWalletRepository) CreateEntry(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateEntryFunc != nil {
		return m.CreateEntryFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.TenantID == entry.TenantID && e.ExternalRef == entry.ExternalRef {
			return domain.ErrDuplicateReference
		}
	}
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockWalletRepository) GetEntryByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.ID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockWalletRepository) GetEntryByExternalRef(ctx context.Context, tenantID, externalRef string) (*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.ExternalRef == externalRef {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockWalletRepository) ListEntries(ctx context.Context, tenantID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			cp := *e
			out = append(out, &cp)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockWalletRepository) ListEntriesByRefPrefix(ctx context.Context, tenantID, refPrefix string) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.TenantID == tenantID && strings.HasPrefix(e.ExternalRef, refPrefix) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockInvoiceRepository is an in-memory mock of InvoiceRepository. Open
// invoices come back ordered by due date ascending, like the real queries.
type MockInvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]*domain.Invoice

	ListOpenForUpdateFunc func(ctx context.Context, tx usecase.Transaction, tenantID string) ([]*domain.Invoice, error)
	UpdateFunc            func(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error
}

func NewMockInvoiceRepository() *MockInvoiceRepository {
	return &MockInvoiceRepository{
		invoices: make(map[string]*domain.Invoice),
	}
}

// Seed installs an invoice.
func (m *MockInvoiceRepository) Seed(inv *domain.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inv, ok := m.invoices[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, domain.ErrInvoiceNotFound
}

func (m *MockInvoiceRepository) listOpen(tenantID string) []*domain.Invoice {
	var out []*domain.Invoice
	for _, inv := range m.invoices {
		if inv.TenantID == tenantID && inv.Open() {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

func (m *MockInvoiceRepository) ListOpenForUpdate(ctx context.Context, tx usecase.Transaction, tenantID string) ([]*domain.Invoice, error) {
	if m.ListOpenForUpdateFunc != nil {
		return m.ListOpenForUpdateFunc(ctx, tx, tenantID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listOpen(tenantID), nil
}

func (m *MockInvoiceRepository) ListOpen(ctx context.Context, tenantID string) ([]*domain.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listOpen(tenantID), nil
}

func (m *MockInvoiceRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Invoice
	for _, inv := range m.invoices {
		if inv.TenantID == tenantID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.After(out[j].DueDate) })
	return out, nil
}

func (m *MockInvoiceRepository) Update(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, invoice)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[invoice.ID]; !ok {
		return domain.ErrInvoiceNotFound
	}
	cp := *invoice
	m.invoices[invoice.ID] = &cp
	return nil
}

// MockNotificationRepository is an in-memory mock of NotificationRepository.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	CreateFunc   func(ctx context.Context, n *domain.Notification) error
	UpdateTxFunc func(ctx context.Context, tx usecase.Transaction, n *domain.Notification) error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notifications {
		if existing.GatewayTxnID == n.GatewayTxnID {
			return domain.ErrDuplicateReference
		}
	}
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, domain.ErrNotificationNotFound
}

func (m *MockNotificationRepository) GetByGatewayTxnID(ctx context.Context, gatewayTxnID string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notifications {
		if n.GatewayTxnID == gatewayTxnID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, domain.ErrNotificationNotFound
}

func (m *MockNotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[n.ID]; !ok {
		return domain.ErrNotificationNotFound
	}
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *MockNotificationRepository) UpdateTx(ctx context.Context, tx usecase.Transaction, n *domain.Notification) error {
	if m.UpdateTxFunc != nil {
		return m.UpdateTxFunc(ctx, tx, n)
	}
	return m.Update(ctx, n)
}

func (m *MockNotificationRepository) listByStates(states ...domain.NotificationState) []*domain.Notification {
	var out []*domain.Notification
	for _, n := range m.notifications {
		for _, s := range states {
			if n.State == s {
				cp := *n
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *MockNotificationRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listByStates(domain.NotificationStateUnmatched, domain.NotificationStatePendingReview)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockNotificationRepository) ListInFlight(ctx context.Context, limit int) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listByStates(domain.NotificationStateReceived, domain.NotificationStateMatched, domain.NotificationStateCredited, domain.NotificationStateAllocated)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MockSessionRepository is an in-memory mock of SessionRepository.
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.PushPaymentSession

	UpdateFunc func(ctx context.Context, s *domain.PushPaymentSession) error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.PushPaymentSession),
	}
}

// Seed installs a session.
func (m *MockSessionRepository) Seed(s *domain.PushPaymentSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *MockSessionRepository) Create(ctx context.Context, s *domain.PushPaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.PushPaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.CorrelationID == correlationID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) Update(ctx context.Context, s *domain.PushPaymentSession) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MockSessionRepository) ListAwaiting(ctx context.Context, limit int) ([]*domain.PushPaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PushPaymentSession
	for _, s := range m.sessions {
		if s.State == domain.PushSessionAwaitingConfirmation {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MockAuditOutboxRepository is an in-memory mock of AuditOutboxRepository.
type MockAuditOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.AuditEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.AuditEvent) error
}

func NewMockAuditOutboxRepository() *MockAuditOutboxRepository {
	return &MockAuditOutboxRepository{}
}

// Events returns all recorded events in creation order.
func (m *MockAuditOutboxRepository) Events() []*domain.AuditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockAuditOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.AuditEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *MockAuditOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditEvent
	for _, e := range m.events {
		if !e.Published {
			cp := *e
			out = append(out, &cp)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockAuditOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return nil
}

// MockTenantDirectory is an in-memory mock of TenantDirectory.
type MockTenantDirectory struct {
	mu       sync.RWMutex
	profiles map[string]*domain.TenantProfile
}

func NewMockTenantDirectory() *MockTenantDirectory {
	return &MockTenantDirectory{
		profiles: make(map[string]*domain.TenantProfile),
	}
}

// Seed installs a tenant profile.
func (m *MockTenantDirectory) Seed(p *domain.TenantProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.TenantID] = p
}

func (m *MockTenantDirectory) GetByID(ctx context.Context, tenantID string) (*domain.TenantProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[tenantID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (m *MockTenantDirectory) FindByAccountRef(ctx context.Context, accountRef string) (*domain.TenantProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.profiles {
		if p.AccountRef == accountRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (m *MockTenantDirectory) FindByPhone(ctx context.Context, phone string) ([]*domain.TenantProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TenantProfile
	for _, p := range m.profiles {
		if p.Phone == phone {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

// MockCache is an in-memory mock of Cache. TTLs are ignored.
type MockCache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MockRetrier is a mock implementation of TxRetrier. The default runs the
// operation once; RetryFunc can simulate retry behavior.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error

	Calls int
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	m.Calls++
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	return operation()
}
