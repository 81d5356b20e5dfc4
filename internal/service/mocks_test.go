package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/KDR9MGR/digital-payments-sub001/internal/directory"
	"github.com/KDR9MGR/digital-payments-sub001/internal/idempotency"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository/mocks"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Resolve(ctx context.Context, userID string) (*models.AccountMapping, error) {
	args := m.Called(ctx, userID)
	if mapping := args.Get(0); mapping != nil {
		return mapping.(*models.AccountMapping), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) Ensure(ctx context.Context, userID, email string) (*models.AccountMapping, error) {
	args := m.Called(ctx, userID, email)
	if mapping := args.Get(0); mapping != nil {
		return mapping.(*models.AccountMapping), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockKeyClaimer struct {
	mock.Mock
}

func (m *mockKeyClaimer) Claim(ctx context.Context, key string, draft *models.Transaction) (*idempotency.ClaimResult, error) {
	args := m.Called(ctx, key, draft)
	if res := args.Get(0); res != nil {
		return res.(*idempotency.ClaimResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockKeyClaimer) AwaitResult(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if txn := args.Get(0); txn != nil {
		return txn.(*models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateCustomer(ctx context.Context, email string) (*processor.Customer, error) {
	args := m.Called(ctx, email)
	if c := args.Get(0); c != nil {
		return c.(*processor.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) CreateConnectedAccount(ctx context.Context, email string) (*processor.ConnectedAccount, error) {
	args := m.Called(ctx, email)
	if a := args.Get(0); a != nil {
		return a.(*processor.ConnectedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) GetConnectedAccount(ctx context.Context, accountID string) (*processor.ConnectedAccount, error) {
	args := m.Called(ctx, accountID)
	if a := args.Get(0); a != nil {
		return a.(*processor.ConnectedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) CreateCharge(ctx context.Context, req processor.ChargeRequest, idempotencyKey string) (*processor.Charge, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if c := args.Get(0); c != nil {
		return c.(*processor.Charge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) GetCharge(ctx context.Context, chargeID string) (*processor.Charge, error) {
	args := m.Called(ctx, chargeID)
	if c := args.Get(0); c != nil {
		return c.(*processor.Charge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) ConfirmCharge(ctx context.Context, chargeID string) (*processor.Charge, error) {
	args := m.Called(ctx, chargeID)
	if c := args.Get(0); c != nil {
		return c.(*processor.Charge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) CreateTransfer(ctx context.Context, req processor.TransferRequest, idempotencyKey string) (*processor.Transfer, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if tr := args.Get(0); tr != nil {
		return tr.(*processor.Transfer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) CreateRefund(ctx context.Context, req processor.RefundRequest, idempotencyKey string) (*processor.Refund, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if r := args.Get(0); r != nil {
		return r.(*processor.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ processor.API = (*mockProcessor)(nil)

// testOrchestrator bundles an orchestrator with its mocked collaborators
type testOrchestrator struct {
	orch   *Orchestrator
	ledger *mocks.MockTransactionRepository
	dir    *mockDirectory
	keys   *mockKeyClaimer
	proc   *mockProcessor
}

func newTestOrchestrator(t *testing.T) *testOrchestrator {
	ledger := mocks.NewMockTransactionRepository(t)
	dir := &mockDirectory{}
	keys := &mockKeyClaimer{}
	proc := &mockProcessor{}
	t.Cleanup(func() {
		dir.AssertExpectations(t)
		keys.AssertExpectations(t)
		proc.AssertExpectations(t)
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testOrchestrator{
		orch:   NewOrchestrator(ledger, dir, keys, proc, logger),
		ledger: ledger,
		dir:    dir,
		keys:   keys,
		proc:   proc,
	}
}

func errNotOnboarded() error {
	return fmt.Errorf("user: %w", directory.ErrNotOnboarded)
}

func onboardedMapping(userID string, payouts bool) *models.AccountMapping {
	return &models.AccountMapping{
		UserID:               userID,
		ProcessorCustomerID:  "cus_" + userID,
		ProcessorPayeeAcctID: "acct_" + userID,
		ChargesEnabled:       true,
		PayoutsEnabled:       payouts,
	}
}
