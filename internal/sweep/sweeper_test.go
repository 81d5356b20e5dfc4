package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/KDR9MGR/digital-payments-sub001/internal/config"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository/mocks"
)

type mockSaga struct {
	mock.Mock
}

func (m *mockSaga) ApplyChargeSucceeded(ctx context.Context, charge *processor.Charge) error {
	return m.Called(ctx, charge).Error(0)
}

func (m *mockSaga) ApplyChargeFailed(ctx context.Context, charge *processor.Charge, failureCode string) error {
	return m.Called(ctx, charge, failureCode).Error(0)
}

type mockProcessor struct {
	mock.Mock
}

var _ processor.API = (*mockProcessor)(nil)

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
	if rf := args.Get(0); rf != nil {
		return rf.(*processor.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}

type testSweeper struct {
	sweeper *Sweeper
	ledger  *mocks.MockTransactionRepository
	keys    *mocks.MockIdempotencyRepository
	saga    *mockSaga
	proc    *mockProcessor
}

func newTestSweeper(t *testing.T) *testSweeper {
	ledger := mocks.NewMockTransactionRepository(t)
	keys := mocks.NewMockIdempotencyRepository(t)
	saga := &mockSaga{}
	t.Cleanup(func() { saga.AssertExpectations(t) })
	proc := &mockProcessor{}
	t.Cleanup(func() { proc.AssertExpectations(t) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.SweepConfig{
		Interval:   time.Minute,
		StuckAfter: 10 * time.Minute,
	}

	return &testSweeper{
		sweeper: NewSweeper(ledger, keys, saga, proc, logger, cfg),
		ledger:  ledger,
		keys:    keys,
		saga:    saga,
		proc:    proc,
	}
}

func stuckTransaction(state models.TransactionState, chargeID string) *models.Transaction {
	return &models.Transaction{
		ID:              uuid.New(),
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountCents:     2500,
		Currency:        "USD",
		ChargeID:        chargeID,
		State:           state,
	}
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("pending charge resolved as succeeded", func(t *testing.T) {
		ts := newTestSweeper(t)
		txn := stuckTransaction(models.StateChargePending, "ch_1")
		charge := &processor.Charge{ID: "ch_1", Status: string(models.ChargeStatusSucceeded)}

		ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), nil)
		ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
			Return([]*models.Transaction{txn}, nil)
		ts.proc.On("GetCharge", mock.Anything, "ch_1").Return(charge, nil)
		ts.saga.On("ApplyChargeSucceeded", mock.Anything, charge).Return(nil)

		ts.sweeper.RunOnce(ctx)
	})

	t.Run("pending charge resolved as failed", func(t *testing.T) {
		ts := newTestSweeper(t)
		txn := stuckTransaction(models.StateChargePending, "ch_1")
		charge := &processor.Charge{
			ID:          "ch_1",
			Status:      string(models.ChargeStatusFailed),
			FailureCode: "expired_card",
		}

		ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), nil)
		ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
			Return([]*models.Transaction{txn}, nil)
		ts.proc.On("GetCharge", mock.Anything, "ch_1").Return(charge, nil)
		ts.saga.On("ApplyChargeFailed", mock.Anything, charge, "expired_card").Return(nil)

		ts.sweeper.RunOnce(ctx)
	})

	t.Run("pending charge awaiting confirmation is left alone", func(t *testing.T) {
		ts := newTestSweeper(t)
		txn := stuckTransaction(models.StateChargePending, "ch_1")
		charge := &processor.Charge{ID: "ch_1", Status: string(models.ChargeStatusRequiresConfirmation)}

		ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), nil)
		ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
			Return([]*models.Transaction{txn}, nil)
		ts.proc.On("GetCharge", mock.Anything, "ch_1").Return(charge, nil)

		ts.sweeper.RunOnce(ctx)

		ts.saga.AssertNotCalled(t, "ApplyChargeSucceeded", mock.Anything, mock.Anything)
		ts.saga.AssertNotCalled(t, "ApplyChargeFailed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pending charge without charge id is skipped", func(t *testing.T) {
		ts := newTestSweeper(t)
		txn := stuckTransaction(models.StateChargePending, "")

		ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), nil)
		ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
			Return([]*models.Transaction{txn}, nil)

		ts.sweeper.RunOnce(ctx)

		ts.proc.AssertNotCalled(t, "GetCharge", mock.Anything, mock.Anything)
	})

	t.Run("settled charge re-runs the transfer leg", func(t *testing.T) {
		for _, state := range []models.TransactionState{
			models.StateChargeSucceeded,
			models.StateTransferPending,
		} {
			t.Run(string(state), func(t *testing.T) {
				ts := newTestSweeper(t)
				txn := stuckTransaction(state, "ch_1")

				ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), nil)
				ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
					Return([]*models.Transaction{txn}, nil)
				ts.saga.On("ApplyChargeSucceeded", mock.Anything, mock.MatchedBy(func(c *processor.Charge) bool {
					return c.ID == "ch_1" && c.Status == string(models.ChargeStatusSucceeded)
				})).Return(nil)

				ts.sweeper.RunOnce(ctx)

				ts.proc.AssertNotCalled(t, "GetCharge", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("re-drive failures do not stop the batch", func(t *testing.T) {
		ts := newTestSweeper(t)
		first := stuckTransaction(models.StateChargePending, "ch_1")
		second := stuckTransaction(models.StateTransferPending, "ch_2")

		ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), nil)
		ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
			Return([]*models.Transaction{first, second}, nil)
		ts.proc.On("GetCharge", mock.Anything, "ch_1").
			Return(nil, errors.New("processor timeout"))
		ts.saga.On("ApplyChargeSucceeded", mock.Anything, mock.MatchedBy(func(c *processor.Charge) bool {
			return c.ID == "ch_2"
		})).Return(nil)

		ts.sweeper.RunOnce(ctx)
	})

	t.Run("purge failure does not block the sweep", func(t *testing.T) {
		ts := newTestSweeper(t)

		ts.keys.On("PurgeExpired", mock.Anything).Return(int64(0), errors.New("db down"))
		ts.ledger.On("FindStuck", mock.Anything, mock.Anything, 100).
			Return(nil, nil)

		ts.sweeper.RunOnce(ctx)
	})
}
