package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service/mocks"
	"github.com/KDR9MGR/digital-payments-sub001/internal/webhook"
)

const testWebhookSecret = "whsec_test"

var testTxnID = uuid.New()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) Handle(ctx context.Context, event *models.WebhookEvent) error {
	return m.Called(ctx, event).Error(0)
}

type stubHealthChecker struct {
	err error
}

func (s stubHealthChecker) PingContext(context.Context) error {
	return s.err
}

type testHandler struct {
	handler    *Handler
	payments   *mocks.MockPaymentInitiator
	directory  *mocks.MockDirectory
	reconciler *mockReconciler
	health     *stubHealthChecker
}

func newTestHandler(t *testing.T) *testHandler {
	payments := mocks.NewMockPaymentInitiator(t)
	dir := mocks.NewMockDirectory(t)
	reconciler := &mockReconciler{}
	t.Cleanup(func() { reconciler.AssertExpectations(t) })
	health := &stubHealthChecker{}

	handler := NewHandler(payments, dir, reconciler, health, testLogger(), testWebhookSecret, webhook.DefaultTolerance)
	return &testHandler{
		handler:    handler,
		payments:   payments,
		directory:  dir,
		reconciler: reconciler,
		health:     health,
	}
}

func settledPayment(state models.TransactionState) *models.Transaction {
	return &models.Transaction{
		ID:              testTxnID,
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountCents:     2500,
		Currency:        "USD",
		ChargeID:        "ch_1",
		TransferID:      "tr_1",
		State:           state,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}
