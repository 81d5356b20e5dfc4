package service

import (
	"context"
	"fmt"

	"github.com/KDR9MGR/digital-payments-sub001/internal/metrics"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/google/uuid"
)

// Refund returns captured funds to the sender. This is always an explicit
// operator or user action; nothing in the saga refunds automatically, so a
// failed transfer leaves funds parked for reconciliation review instead of
// silently bouncing back.
func (o *Orchestrator) Refund(ctx context.Context, transactionID uuid.UUID, amountCents int64) (*PaymentResult, error) {
	txn, err := o.ledger.FindByID(ctx, transactionID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	switch txn.State {
	case models.StateTransferFailed, models.StateTransferSucceeded:
		// refundable
	case models.StateRefunded:
		return o.snapshotResult(ctx, txn), nil
	default:
		return nil, &ServiceError{
			Code:    ErrCodeInvalidState,
			Message: fmt.Sprintf("payment in state %s has no captured funds to refund", txn.State),
		}
	}

	if amountCents == 0 {
		amountCents = txn.AmountCents
	}
	if amountCents < 0 || amountCents > txn.AmountCents {
		return nil, &ServiceError{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("refund amount %d must be between 1 and %d", amountCents, txn.AmountCents),
		}
	}

	refundReq := processor.RefundRequest{
		ChargeID:    txn.ChargeID,
		AmountCents: amountCents,
	}

	refund, err := o.processor.CreateRefund(ctx, refundReq, RefundKey(txn.ChargeID))
	if err != nil {
		if processor.IsTransient(err) {
			return nil, &ServiceError{Code: ErrCodeServiceUnavailable, Message: "processor unavailable, refund not submitted", Err: err}
		}
		return nil, &ServiceError{Code: ErrCodeInternalError, Message: "refund was rejected by the processor", Err: err}
	}

	if err := o.advance(ctx, txn, models.StateRefunded, repository.AdvanceFields{FailureCode: ""}); err != nil {
		return nil, err
	}

	metrics.Refunds.Inc()
	o.logger.Info("refunded payment",
		"transaction_id", txn.ID,
		"charge_id", txn.ChargeID,
		"refund_id", refund.ID,
		"amount_cents", amountCents,
	)

	return o.snapshotResult(ctx, txn), nil
}
