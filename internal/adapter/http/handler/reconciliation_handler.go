package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyumbapay/paycore/internal/adapter/http/dto"
	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	ListPending(ctx context.Context, limit, offset int) ([]*domain.Notification, error)
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)
	ResolvePending(ctx context.Context, input usecase.ResolveInput) (*domain.Notification, error)
	DismissPending(ctx context.Context, notificationID, note, staffID string) (*domain.Notification, error)
	RecordRefund(ctx context.Context, input usecase.RefundInput) (*domain.LedgerEntry, error)
	GetTenantHistory(ctx context.Context, tenantID string, limit, offset int) (*usecase.TenantHistory, error)
}

// ReconciliationHandler is the staff-facing reconciliation surface.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// ListPending lists notifications awaiting review, oldest first.
func (h *ReconciliationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	notifications, err := h.reconUC.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending reconciliations", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListPendingResponse{
		Notifications: dto.NotificationsFromDomain(notifications),
		Total:         int64(len(notifications)),
	})
}

// Get retrieves one notification by ID.
func (h *ReconciliationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing notification ID", "")
		return
	}

	n, err := h.reconUC.GetNotification(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get notification", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationFromDomain(n))
}

// Resolve assigns a pending notification to a tenant and settles it.
func (h *ReconciliationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing notification ID", "")
		return
	}

	var req dto.ResolvePendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid resolution", err.Error())
		return
	}

	n, err := h.reconUC.ResolvePending(r.Context(), usecase.ResolveInput{
		NotificationID: id,
		TenantID:       req.TenantID,
		Note:           req.Note,
		StaffID:        req.StaffID,
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to resolve notification", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationFromDomain(n))
}

// Dismiss closes a pending notification without crediting anyone.
func (h *ReconciliationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing notification ID", "")
		return
	}

	var req dto.DismissPendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid dismissal", err.Error())
		return
	}

	n, err := h.reconUC.DismissPending(r.Context(), id, req.Note, req.StaffID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to dismiss notification", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationFromDomain(n))
}

// Refund records a gateway reversal as an offsetting ledger entry.
func (h *ReconciliationHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid refund", err.Error())
		return
	}

	entry, err := h.reconUC.RecordRefund(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to record refund", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// TenantHistory returns the wallet, ledger and invoices for one tenant.
func (h *ReconciliationHandler) TenantHistory(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing tenant ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	history, err := h.reconUC.GetTenantHistory(r.Context(), tenantID, limit, offset)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get tenant history", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TenantHistoryResponse{
		Wallet:   dto.WalletFromDomain(history.Wallet),
		Entries:  dto.EntriesFromDomain(history.Entries),
		Invoices: dto.InvoicesFromDomain(history.Invoices),
	})
}
