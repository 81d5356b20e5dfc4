package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
)

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("full refund after failed transfer", func(t *testing.T) {
		to := newTestOrchestrator(t)
		txn := claimedTransaction(validInitiateRequest())
		txn.State = models.StateTransferFailed
		txn.ChargeID = "ch_1"

		to.ledger.On("FindByID", ctx, txn.ID).Return(txn, nil)
		to.proc.On("CreateRefund", ctx, processor.RefundRequest{
			ChargeID:    "ch_1",
			AmountCents: 2500,
		}, "refund:ch_1").Return(&processor.Refund{ID: "re_1", ChargeID: "ch_1", AmountCents: 2500}, nil)
		to.ledger.On("AdvanceState", ctx, txn.ID, models.StateRefunded, repository.AdvanceFields{}).Return(nil)
		to.proc.On("GetCharge", ctx, "ch_1").Return(&processor.Charge{ID: "ch_1", Status: "succeeded"}, nil)

		result, err := to.orch.Refund(ctx, txn.ID, 0)

		require.NoError(t, err)
		assert.Equal(t, models.StateRefunded, result.Transaction.State)
	})

	t.Run("partial refund after settled transfer", func(t *testing.T) {
		to := newTestOrchestrator(t)
		txn := claimedTransaction(validInitiateRequest())
		txn.State = models.StateTransferSucceeded
		txn.ChargeID = "ch_1"

		to.ledger.On("FindByID", ctx, txn.ID).Return(txn, nil)
		to.proc.On("CreateRefund", ctx, processor.RefundRequest{
			ChargeID:    "ch_1",
			AmountCents: 1000,
		}, "refund:ch_1").Return(&processor.Refund{ID: "re_1", ChargeID: "ch_1", AmountCents: 1000}, nil)
		to.ledger.On("AdvanceState", ctx, txn.ID, models.StateRefunded, repository.AdvanceFields{}).Return(nil)
		to.proc.On("GetCharge", ctx, "ch_1").Return(&processor.Charge{ID: "ch_1", Status: "succeeded"}, nil)

		_, err := to.orch.Refund(ctx, txn.ID, 1000)
		require.NoError(t, err)
	})

	t.Run("refund is idempotent once refunded", func(t *testing.T) {
		to := newTestOrchestrator(t)
		txn := claimedTransaction(validInitiateRequest())
		txn.State = models.StateRefunded
		txn.ChargeID = "ch_1"

		to.ledger.On("FindByID", ctx, txn.ID).Return(txn, nil)
		to.proc.On("GetCharge", ctx, "ch_1").Return(&processor.Charge{ID: "ch_1", Status: "succeeded"}, nil)

		result, err := to.orch.Refund(ctx, txn.ID, 0)

		require.NoError(t, err)
		assert.Equal(t, models.StateRefunded, result.Transaction.State)
		to.proc.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no captured funds to refund", func(t *testing.T) {
		to := newTestOrchestrator(t)
		txn := claimedTransaction(validInitiateRequest())
		txn.State = models.StateChargeFailed

		to.ledger.On("FindByID", ctx, txn.ID).Return(txn, nil)

		_, err := to.orch.Refund(ctx, txn.ID, 0)

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, ErrCodeInvalidState, svcErr.Code)
	})

	t.Run("amount above capture rejected", func(t *testing.T) {
		to := newTestOrchestrator(t)
		txn := claimedTransaction(validInitiateRequest())
		txn.State = models.StateTransferSucceeded
		txn.ChargeID = "ch_1"

		to.ledger.On("FindByID", ctx, txn.ID).Return(txn, nil)

		_, err := to.orch.Refund(ctx, txn.ID, 5000)

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, ErrCodeValidation, svcErr.Code)
	})

	t.Run("transient processor failure leaves state untouched", func(t *testing.T) {
		to := newTestOrchestrator(t)
		txn := claimedTransaction(validInitiateRequest())
		txn.State = models.StateTransferFailed
		txn.ChargeID = "ch_1"

		to.ledger.On("FindByID", ctx, txn.ID).Return(txn, nil)
		to.proc.On("CreateRefund", ctx, mock.Anything, "refund:ch_1").Return(nil, &processor.Error{
			Code:       processor.CodeRateLimited,
			HTTPStatus: 429,
			Transient:  true,
		})

		_, err := to.orch.Refund(ctx, txn.ID, 0)

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, ErrCodeServiceUnavailable, svcErr.Code)
		to.ledger.AssertNotCalled(t, "AdvanceState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
