package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyumbapay/paycore/internal/adapter/http/dto"
	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	GetWallet(ctx context.Context, tenantID string) (*domain.WalletAccount, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
	VerifyChain(ctx context.Context, tenantID string) error
}

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	walletUC WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Get returns a tenant's wallet.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing tenant ID", "")
		return
	}

	wallet, err := h.walletUC.GetWallet(r.Context(), tenantID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get wallet", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// ListEntries returns a tenant's ledger entries in creation order.
func (h *WalletHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing tenant ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.walletUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		TenantID: tenantID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list entries", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Verify replays the tenant's full entry chain against the stored balance.
func (h *WalletHandler) Verify(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing tenant ID", "")
		return
	}

	if err := h.walletUC.VerifyChain(r.Context(), tenantID); err != nil {
		status := mapDomainError(err)
		writeError(w, status, "ledger verification failed", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
