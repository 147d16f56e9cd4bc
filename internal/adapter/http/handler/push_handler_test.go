package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nyumbapay/paycore/internal/adapter/http/dto"
	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

type pushServiceStub struct {
	initiateFn func(ctx context.Context, input usecase.InitiatePushInput) (*domain.PushPaymentSession, error)
	getFn      func(ctx context.Context, id string) (*domain.PushPaymentSession, error)
	closeFn    func(ctx context.Context, id string) (*domain.PushPaymentSession, error)
}

func (s *pushServiceStub) InitiatePush(ctx context.Context, input usecase.InitiatePushInput) (*domain.PushPaymentSession, error) {
	return s.initiateFn(ctx, input)
}

func (s *pushServiceStub) GetSession(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
	return s.getFn(ctx, id)
}

func (s *pushServiceStub) CloseSession(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
	return s.closeFn(ctx, id)
}

func TestPushHandler_Initiate(t *testing.T) {
	t.Run("valid initiation", func(t *testing.T) {
		var captured usecase.InitiatePushInput
		handler := NewPushHandler(&pushServiceStub{
			initiateFn: func(ctx context.Context, input usecase.InitiatePushInput) (*domain.PushPaymentSession, error) {
				captured = input
				return &domain.PushPaymentSession{
					ID: "ps_1", TenantID: input.TenantID, Amount: input.Amount,
					State: domain.PushSessionAwaitingConfirmation,
				}, nil
			},
		})

		body, _ := json.Marshal(dto.InitiatePushRequest{TenantID: "tnt_1", Amount: 45000})
		req := httptest.NewRequest(http.MethodPost, "/push-payments", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Initiate(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.TenantID != "tnt_1" || captured.Amount != 45000 {
			t.Errorf("unexpected input: %+v", captured)
		}

		var resp dto.SessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.State != string(domain.PushSessionAwaitingConfirmation) {
			t.Errorf("state = %s, want awaiting_confirmation", resp.State)
		}
	})

	t.Run("zero amount is rejected before the service", func(t *testing.T) {
		handler := NewPushHandler(&pushServiceStub{
			initiateFn: func(ctx context.Context, input usecase.InitiatePushInput) (*domain.PushPaymentSession, error) {
				t.Fatal("InitiatePush should not be called for an invalid payload")
				return nil, nil
			},
		})

		body, _ := json.Marshal(dto.InitiatePushRequest{TenantID: "tnt_1"})
		req := httptest.NewRequest(http.MethodPost, "/push-payments", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Initiate(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		handler := NewPushHandler(&pushServiceStub{
			initiateFn: func(ctx context.Context, input usecase.InitiatePushInput) (*domain.PushPaymentSession, error) {
				return nil, domain.ErrTenantNotFound
			},
		})

		body, _ := json.Marshal(dto.InitiatePushRequest{TenantID: "tnt_ghost", Amount: 45000})
		req := httptest.NewRequest(http.MethodPost, "/push-payments", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Initiate(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestPushHandler_Get(t *testing.T) {
	handler := NewPushHandler(&pushServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
			return &domain.PushPaymentSession{ID: id, State: domain.PushSessionSucceeded}, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/push-payments/ps_1", nil), "id", "ps_1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "ps_1" || resp.State != string(domain.PushSessionSucceeded) {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestPushHandler_Close(t *testing.T) {
	t.Run("closes an awaiting session", func(t *testing.T) {
		handler := NewPushHandler(&pushServiceStub{
			closeFn: func(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
				return &domain.PushPaymentSession{ID: id, State: domain.PushSessionTimedOut}, nil
			},
		})

		req := withURLParam(httptest.NewRequest(http.MethodPost, "/push-payments/ps_1/close", nil), "id", "ps_1")
		rec := httptest.NewRecorder()

		handler.Close(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("settled session conflicts", func(t *testing.T) {
		handler := NewPushHandler(&pushServiceStub{
			closeFn: func(ctx context.Context, id string) (*domain.PushPaymentSession, error) {
				return nil, domain.ErrInvalidTransition
			},
		})

		req := withURLParam(httptest.NewRequest(http.MethodPost, "/push-payments/ps_1/close", nil), "id", "ps_1")
		rec := httptest.NewRecorder()

		handler.Close(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}
