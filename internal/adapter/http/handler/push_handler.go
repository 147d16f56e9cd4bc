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

// PushService defines the behavior needed by PushHandler.
type PushService interface {
	InitiatePush(ctx context.Context, input usecase.InitiatePushInput) (*domain.PushPaymentSession, error)
	GetSession(ctx context.Context, id string) (*domain.PushPaymentSession, error)
	CloseSession(ctx context.Context, id string) (*domain.PushPaymentSession, error)
}

// PushHandler handles push payment session HTTP requests.
type PushHandler struct {
	pushUC PushService
}

// NewPushHandler creates a new PushHandler.
func NewPushHandler(pushUC PushService) *PushHandler {
	return &PushHandler{pushUC: pushUC}
}

// Initiate starts a push payment session.
func (h *PushHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req dto.InitiatePushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push request", err.Error())
		return
	}

	session, err := h.pushUC.InitiatePush(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to initiate push payment", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.SessionFromDomain(session))
}

// Get retrieves a session by ID.
func (h *PushHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session ID", "")
		return
	}

	session, err := h.pushUC.GetSession(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get session", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// Close gives up on an awaiting session.
func (h *PushHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session ID", "")
		return
	}

	session, err := h.pushUC.CloseSession(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to close session", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}
