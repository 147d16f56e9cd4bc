package dto

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

var validate = validator.New()

// PaymentNotificationRequest is the gateway's confirmation of a payer-initiated
// paybill deposit. Amounts are integer minor currency units.
type PaymentNotificationRequest struct {
	GatewayTxnID string    `json:"gateway_txn_id" validate:"required"`
	Amount       int64     `json:"amount" validate:"required,gt=0"`
	PayerPhone   string    `json:"payer_phone" validate:"omitempty,e164"`
	AccountRef   string    `json:"account_ref"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Validate checks the request against its field rules.
func (r *PaymentNotificationRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input.
func (r *PaymentNotificationRequest) ToUseCaseInput() usecase.IngestInput {
	occurredAt := r.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return usecase.IngestInput{
		GatewayTxnID: r.GatewayTxnID,
		Amount:       r.Amount,
		PayerPhone:   r.PayerPhone,
		AccountRef:   r.AccountRef,
		Source:       domain.PaymentSourceDirect,
		OccurredAt:   occurredAt,
	}
}

// PushCallbackRequest is the gateway's asynchronous verdict on an STK push,
// echoing the correlation id handed out at initiation.
type PushCallbackRequest struct {
	CorrelationID string `json:"correlation_id" validate:"required"`
	GatewayTxnID  string `json:"gateway_txn_id"`
	Succeeded     bool   `json:"succeeded"`
	Reason        string `json:"reason"`
	Amount        int64  `json:"amount" validate:"gte=0"`
}

// Validate checks the request against its field rules.
func (r *PushCallbackRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input.
func (r *PushCallbackRequest) ToUseCaseInput() usecase.PushCallback {
	return usecase.PushCallback{
		CorrelationID: r.CorrelationID,
		GatewayTxnID:  r.GatewayTxnID,
		Succeeded:     r.Succeeded,
		Reason:        r.Reason,
		Amount:        r.Amount,
	}
}

// InitiatePushRequest asks the gateway to prompt a tenant's phone for payment.
// Phone overrides the tenant's registered number when present.
type InitiatePushRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
}

// Validate checks the request against its field rules.
func (r *InitiatePushRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input.
func (r *InitiatePushRequest) ToUseCaseInput() usecase.InitiatePushInput {
	return usecase.InitiatePushInput{
		TenantID: r.TenantID,
		Amount:   r.Amount,
		Phone:    r.Phone,
	}
}

// ResolvePendingRequest assigns a pending notification to a tenant.
type ResolvePendingRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Note     string `json:"note" validate:"required"`
	StaffID  string `json:"staff_id" validate:"required"`
}

// Validate checks the request against its field rules.
func (r *ResolvePendingRequest) Validate() error {
	return validate.Struct(r)
}

// DismissPendingRequest closes a pending notification without crediting.
type DismissPendingRequest struct {
	Note    string `json:"note" validate:"required"`
	StaffID string `json:"staff_id" validate:"required"`
}

// Validate checks the request against its field rules.
func (r *DismissPendingRequest) Validate() error {
	return validate.Struct(r)
}

// RefundRequest records a gateway reversal as an offsetting ledger entry.
type RefundRequest struct {
	TenantID    string `json:"tenant_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	ExternalRef string `json:"external_ref" validate:"required"`
	Description string `json:"description"`
}

// Validate checks the request against its field rules.
func (r *RefundRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input.
func (r *RefundRequest) ToUseCaseInput() usecase.RefundInput {
	return usecase.RefundInput{
		TenantID:    r.TenantID,
		Amount:      r.Amount,
		ExternalRef: r.ExternalRef,
		Description: r.Description,
	}
}
