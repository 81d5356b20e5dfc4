package service

import (
	"context"
	"errors"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/google/uuid"
)

// The Apply* methods are the asynchronous entry points into the saga: the
// webhook reconciler and the sweep drive ledger state through them. They
// treat a stale transition as success (the event is old news) and return an
// error only when the work should be redelivered or re-swept.

// ApplyChargeSucceeded advances a payment whose charge the processor
// reports settled, and drives the missing transfer if the synchronous path
// never got to it. This is the compensating action that makes the saga
// survive a crash between the charge and transfer steps.
func (o *Orchestrator) ApplyChargeSucceeded(ctx context.Context, charge *processor.Charge) error {
	txn, err := o.findByChargeRef(ctx, charge)
	if err != nil {
		return err
	}

	err = o.ledger.AdvanceState(ctx, txn.ID, models.StateChargeSucceeded, repository.AdvanceFields{ChargeID: charge.ID})
	switch {
	case err == nil:
		txn.State = models.StateChargeSucceeded
		txn.ChargeID = charge.ID
	case errors.Is(err, models.ErrStaleTransition):
		// Already past CHARGE_SUCCEEDED (or the charge raced a failure);
		// re-read and fall through to the transfer check.
		o.logger.Debug("charge.succeeded event was stale", "transaction_id", txn.ID, "charge_id", charge.ID)
		txn, err = o.ledger.FindByID(ctx, txn.ID)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if !o.needsTransfer(txn) {
		return nil
	}

	o.logger.Info("driving missing transfer from webhook",
		"transaction_id", txn.ID,
		"charge_id", charge.ID,
	)

	_, transferErr := o.resumeTransfer(ctx, txn)
	return retryableOnly(transferErr)
}

// ApplyChargeFailed settles a payment whose charge the processor reports
// failed. No transfer can ever exist for it.
func (o *Orchestrator) ApplyChargeFailed(ctx context.Context, charge *processor.Charge, failureCode string) error {
	txn, err := o.findByChargeRef(ctx, charge)
	if err != nil {
		return err
	}

	if failureCode == "" {
		failureCode = ErrCodeCardDeclined
	}

	err = o.ledger.AdvanceState(ctx, txn.ID, models.StateChargeFailed, repository.AdvanceFields{
		ChargeID:    charge.ID,
		FailureCode: failureCode,
	})
	if errors.Is(err, models.ErrStaleTransition) {
		o.logger.Warn("charge.failed event rejected by ledger guard",
			"transaction_id", txn.ID,
			"state", txn.State,
		)
		return nil
	}
	return err
}

// ApplyTransferPaid settles the transfer leg from a processor event
func (o *Orchestrator) ApplyTransferPaid(ctx context.Context, transfer *processor.Transfer) error {
	txn, err := o.ledger.FindByChargeID(ctx, transfer.SourceCharge)
	if err != nil {
		return mapLookupError(err)
	}

	err = o.ledger.AdvanceState(ctx, txn.ID, models.StateTransferSucceeded, repository.AdvanceFields{TransferID: transfer.ID})
	if errors.Is(err, models.ErrStaleTransition) {
		o.logger.Debug("transfer.paid event was stale", "transaction_id", txn.ID, "transfer_id", transfer.ID)
		return nil
	}
	return err
}

// ApplyTransferFailed marks the transfer leg failed from a processor event.
// The state is recoverable: operator retry or refund follows.
func (o *Orchestrator) ApplyTransferFailed(ctx context.Context, transfer *processor.Transfer, failureCode string) error {
	txn, err := o.ledger.FindByChargeID(ctx, transfer.SourceCharge)
	if err != nil {
		return mapLookupError(err)
	}

	if failureCode == "" {
		failureCode = "transfer_failed"
	}

	err = o.ledger.AdvanceState(ctx, txn.ID, models.StateTransferFailed, repository.AdvanceFields{
		TransferID:  transfer.ID,
		FailureCode: failureCode,
	})
	if errors.Is(err, models.ErrStaleTransition) {
		o.logger.Debug("transfer.failed event was stale", "transaction_id", txn.ID, "transfer_id", transfer.ID)
		return nil
	}
	return err
}

// findByChargeRef locates the ledger row for a processor charge: by the
// recorded charge id, falling back to the transaction id the charge carries
// in its metadata. The fallback matters when the process died after the
// processor call but before the ledger write.
func (o *Orchestrator) findByChargeRef(ctx context.Context, charge *processor.Charge) (*models.Transaction, error) {
	txn, err := o.ledger.FindByChargeID(ctx, charge.ID)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	ref, ok := charge.Metadata["transaction_id"]
	if !ok {
		return nil, mapLookupError(err)
	}
	id, parseErr := uuid.Parse(ref)
	if parseErr != nil {
		return nil, mapLookupError(err)
	}

	txn, err = o.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return txn, nil
}

// needsTransfer reports whether a payment's charge settled without the
// transfer leg reaching a terminal state. Re-driving an already-created
// transfer is safe: the deterministic idempotency key returns the existing
// transfer rather than minting another.
func (o *Orchestrator) needsTransfer(txn *models.Transaction) bool {
	switch txn.State {
	case models.StateChargeSucceeded, models.StateTransferPending:
		return true
	}
	return false
}

// retryableOnly filters a saga step error down to what should bounce the
// webhook delivery or sweep pass: transient unavailability. Permanent
// outcomes have already been written to the ledger and the event is
// considered consumed.
func retryableOnly(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Code == ErrCodeServiceUnavailable {
		return err
	}
	return nil
}
