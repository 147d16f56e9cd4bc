package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nyumbapay/paycore/internal/adapter/http/dto"
	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/usecase"
)

func postWebhook(t *testing.T, e *env, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(payload)
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func TestDirectPaymentReconciliation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB, e := setupEnv(t, ctx)

	testDB.SeedTenant(ctx, "tnt_amara", "+254700000001", "UNIT-4B")
	now := time.Now().UTC()
	testDB.SeedInvoice(ctx, &domain.Invoice{
		ID:            "inv_jan",
		TenantID:      "tnt_amara",
		Amount:        50000,
		PenaltyAmount: 2000,
		Status:        domain.InvoiceStatusOverdue,
		DueDate:       now.AddDate(0, -1, 0),
	})
	testDB.SeedInvoice(ctx, &domain.Invoice{
		ID:       "inv_feb",
		TenantID: "tnt_amara",
		Amount:   50000,
		Status:   domain.InvoiceStatusUnpaid,
		DueDate:  now,
	})

	t.Run("paybill deposit settles oldest invoice first", func(t *testing.T) {
		w := postWebhook(t, e, "/webhooks/payments", dto.PaymentNotificationRequest{
			GatewayTxnID: "MPE000001",
			Amount:       60000,
			PayerPhone:   "+254700000001",
			AccountRef:   "UNIT-4B",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp dto.NotificationResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.State != string(domain.NotificationStateRecorded) {
			t.Errorf("expected state recorded, got %s", resp.State)
		}
		if resp.TenantID != "tnt_amara" {
			t.Errorf("expected tenant tnt_amara, got %s", resp.TenantID)
		}

		// 60000 in: 2000 penalty + 50000 principal clear inv_jan, 8000
		// partially pays inv_feb, so the wallet ends empty.
		wallet, err := e.walletUC.GetWallet(ctx, "tnt_amara")
		if err != nil {
			t.Fatalf("failed to get wallet: %v", err)
		}
		if wallet.Balance != 0 {
			t.Errorf("expected balance 0 after allocation, got %d", wallet.Balance)
		}

		var status string
		if err := testDB.Pool.QueryRow(ctx, `SELECT status FROM invoices WHERE id = 'inv_jan'`).Scan(&status); err != nil {
			t.Fatalf("failed to read invoice: %v", err)
		}
		if status != string(domain.InvoiceStatusPaid) {
			t.Errorf("expected inv_jan paid, got %s", status)
		}
		var amountPaid int64
		if err := testDB.Pool.QueryRow(ctx, `SELECT amount_paid FROM invoices WHERE id = 'inv_feb'`).Scan(&amountPaid); err != nil {
			t.Fatalf("failed to read invoice: %v", err)
		}
		if amountPaid != 8000 {
			t.Errorf("expected 8000 applied to inv_feb, got %d", amountPaid)
		}

		if err := e.walletUC.VerifyChain(ctx, "tnt_amara"); err != nil {
			t.Errorf("ledger chain verification failed: %v", err)
		}

		events, err := e.outbox.GetUnpublished(ctx, 10)
		if err != nil {
			t.Fatalf("failed to read outbox: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected 1 audit event, got %d", len(events))
		}
		if events[0].EventType != domain.EventTypeReconciliationRecorded {
			t.Errorf("unexpected event type %s", events[0].EventType)
		}
	})

	t.Run("redelivered notification is a no-op", func(t *testing.T) {
		w := postWebhook(t, e, "/webhooks/payments", dto.PaymentNotificationRequest{
			GatewayTxnID: "MPE000001",
			Amount:       60000,
			PayerPhone:   "+254700000001",
			AccountRef:   "UNIT-4B",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		wallet, err := e.walletUC.GetWallet(ctx, "tnt_amara")
		if err != nil {
			t.Fatalf("failed to get wallet: %v", err)
		}
		if wallet.Balance != 0 {
			t.Errorf("expected balance unchanged at 0, got %d", wallet.Balance)
		}
	})
}

func TestUnmatchedPaymentGoesToReviewAndResolves(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB, e := setupEnv(t, ctx)

	testDB.SeedTenant(ctx, "tnt_joseph", "+254700000002", "UNIT-7A")
	testDB.SeedInvoice(ctx, &domain.Invoice{
		ID:       "inv_march",
		TenantID: "tnt_joseph",
		Amount:   30000,
		Status:   domain.InvoiceStatusUnpaid,
		DueDate:  time.Now().UTC(),
	})

	w := postWebhook(t, e, "/webhooks/payments", dto.PaymentNotificationRequest{
		GatewayTxnID: "MPE000002",
		Amount:       30000,
		PayerPhone:   "+254799999999",
		AccountRef:   "UNIT-99Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp dto.NotificationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.State != string(domain.NotificationStatePendingReview) {
		t.Fatalf("expected pending_review, got %s", resp.State)
	}

	// Money must not move until a human decides.
	wallet, err := e.walletUC.GetWallet(ctx, "tnt_joseph")
	if err != nil {
		t.Fatalf("failed to get wallet: %v", err)
	}
	if wallet.Balance != 0 {
		t.Fatalf("expected untouched wallet, got balance %d", wallet.Balance)
	}

	resolved, err := e.reconUC.ResolvePending(ctx, usecase.ResolveInput{
		NotificationID: resp.ID,
		TenantID:       "tnt_joseph",
		Note:           "payer confirmed the reference was for unit 7A",
		StaffID:        "staff_grace",
	})
	if err != nil {
		t.Fatalf("failed to resolve pending notification: %v", err)
	}
	if resolved.State != domain.NotificationStateRecorded {
		t.Errorf("expected recorded after resolution, got %s", resolved.State)
	}

	var status string
	if err := testDB.Pool.QueryRow(ctx, `SELECT status FROM invoices WHERE id = 'inv_march'`).Scan(&status); err != nil {
		t.Fatalf("failed to read invoice: %v", err)
	}
	if status != string(domain.InvoiceStatusPaid) {
		t.Errorf("expected inv_march paid after resolution, got %s", status)
	}

	entries, err := e.walletUC.ListEntries(ctx, usecase.ListEntriesInput{TenantID: "tnt_joseph", Limit: 10})
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	foundReconciliation := false
	for _, entry := range entries {
		if entry.Kind == domain.EntryKindCreditReconciliation {
			foundReconciliation = true
		}
	}
	if !foundReconciliation {
		t.Error("expected a credit_reconciliation entry for the manual resolution")
	}
}

func TestPushPaymentCallbackFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB, e := setupEnv(t, ctx)

	testDB.SeedTenant(ctx, "tnt_wanjiru", "+254700000003", "UNIT-2C")
	testDB.SeedInvoice(ctx, &domain.Invoice{
		ID:       "inv_april",
		TenantID: "tnt_wanjiru",
		Amount:   45000,
		Status:   domain.InvoiceStatusUnpaid,
		DueDate:  time.Now().UTC(),
	})

	session, err := e.pushUC.InitiatePush(ctx, usecase.InitiatePushInput{
		TenantID: "tnt_wanjiru",
		Amount:   45000,
	})
	if err != nil {
		t.Fatalf("failed to initiate push: %v", err)
	}
	if session.State != domain.PushSessionAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %s", session.State)
	}

	w := postWebhook(t, e, "/webhooks/push-callbacks", dto.PushCallbackRequest{
		CorrelationID: session.CorrelationID,
		GatewayTxnID:  "MPE000003",
		Succeeded:     true,
		Amount:        45000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	updated, err := e.pushUC.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if updated.State != domain.PushSessionSucceeded {
		t.Errorf("expected succeeded session, got %s", updated.State)
	}

	var status string
	if err := testDB.Pool.QueryRow(ctx, `SELECT status FROM invoices WHERE id = 'inv_april'`).Scan(&status); err != nil {
		t.Fatalf("failed to read invoice: %v", err)
	}
	if status != string(domain.InvoiceStatusPaid) {
		t.Errorf("expected inv_april paid, got %s", status)
	}

	n, err := e.notifs.GetByGatewayTxnID(ctx, "MPE000003")
	if err != nil {
		t.Fatalf("failed to get notification: %v", err)
	}
	if n.Source != domain.PaymentSourcePush {
		t.Errorf("expected push source, got %s", n.Source)
	}
	if n.State != domain.NotificationStateRecorded {
		t.Errorf("expected recorded, got %s", n.State)
	}
}
