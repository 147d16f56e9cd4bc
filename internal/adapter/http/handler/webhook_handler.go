package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nyumbapay/paycore/internal/adapter/http/dto"
	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// ReconciliationIngestService defines the behavior WebhookHandler needs for
// direct payment confirmations.
type ReconciliationIngestService interface {
	HandleNotification(ctx context.Context, input usecase.IngestInput) (*domain.Notification, error)
}

// PushCallbackService defines the behavior WebhookHandler needs for push
// confirmations.
type PushCallbackService interface {
	HandleCallback(ctx context.Context, cb usecase.PushCallback) (*domain.PushPaymentSession, error)
}

// WebhookHandler receives gateway deliveries. Both endpoints always answer
// 200 on a duplicate so the gateway stops retrying.
type WebhookHandler struct {
	recon ReconciliationIngestService
	push  PushCallbackService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(recon ReconciliationIngestService, push PushCallbackService) *WebhookHandler {
	return &WebhookHandler{recon: recon, push: push}
}

// PaymentConfirmation ingests a payer-initiated paybill confirmation.
func (h *WebhookHandler) PaymentConfirmation(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment notification", err.Error())
		return
	}

	n, err := h.recon.HandleNotification(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to process payment notification", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationFromDomain(n))
}

// PushCallback ingests an asynchronous push payment verdict.
func (h *WebhookHandler) PushCallback(w http.ResponseWriter, r *http.Request) {
	var req dto.PushCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push callback", err.Error())
		return
	}

	session, err := h.push.HandleCallback(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to process push callback", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}
