package service

import (
	"context"
	"fmt"

	"github.com/KDR9MGR/digital-payments-sub001/internal/metrics"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
)

// TransferKey derives the transfer idempotency key from the charge that
// funds it. Every path that creates a transfer for a charge (synchronous
// saga, webhook compensation, operator retry) derives the same key, so at
// most one transfer can ever exist per charge.
func TransferKey(chargeID string) string {
	return "transfer:" + chargeID
}

// RefundKey derives the refund idempotency key from the refunded charge
func RefundKey(chargeID string) string {
	return "refund:" + chargeID
}

// runCharge executes the charge step. The caller's idempotency key goes to
// the processor verbatim so upstream retries are deduplicated there too.
// Expects the ledger row in CHARGE_PENDING.
func (o *Orchestrator) runCharge(
	ctx context.Context,
	txn *models.Transaction,
	sender *models.AccountMapping,
	recipient *models.AccountMapping,
	req InitiateRequest,
) (*models.Charge, error) {
	customerID := req.CustomerID
	if customerID == "" {
		customerID = sender.ProcessorCustomerID
	}

	chargeReq := processor.ChargeRequest{
		CustomerID:      customerID,
		PaymentMethodID: req.PaymentMethodID,
		Currency:        txn.Currency,
		AmountCents:     txn.AmountCents,
		Confirm:         true,
		TransferGroup:   txn.ID.String(),
		Metadata: map[string]string{
			"transaction_id":             txn.ID.String(),
			"sender_user_id":             txn.SenderUserID,
			"recipient_user_id":          txn.RecipientUserID,
			"recipient_payee_account_id": recipient.ProcessorPayeeAcctID,
		},
	}

	charge, err := o.processor.CreateCharge(ctx, chargeReq, txn.IdempotencyKey)
	if err != nil {
		return nil, o.classifyChargeError(ctx, txn, err)
	}

	return o.applyChargeOutcome(ctx, txn, charge)
}

// confirmPendingCharge completes a charge that was waiting on user
// authentication
func (o *Orchestrator) confirmPendingCharge(ctx context.Context, txn *models.Transaction) (*models.Charge, error) {
	if txn.ChargeID == "" {
		return nil, &ServiceError{
			Code:    ErrCodeInvalidState,
			Message: "payment has no charge to confirm",
		}
	}

	charge, err := o.processor.ConfirmCharge(ctx, txn.ChargeID)
	if err != nil {
		return nil, o.classifyChargeError(ctx, txn, err)
	}

	snapshot, err := o.applyChargeOutcome(ctx, txn, charge)
	if err != nil {
		return snapshot, err
	}
	if snapshot.Status == models.ChargeStatusRequiresConfirmation {
		return snapshot, &ServiceError{
			Code:    ErrCodeAuthenticationRequired,
			Message: "charge still requires user authentication",
		}
	}
	return snapshot, nil
}

// applyChargeOutcome records a processor charge outcome on the ledger
func (o *Orchestrator) applyChargeOutcome(ctx context.Context, txn *models.Transaction, charge *processor.Charge) (*models.Charge, error) {
	snapshot := chargeSnapshot(charge)

	switch snapshot.Status {
	case models.ChargeStatusSucceeded:
		if err := o.advance(ctx, txn, models.StateChargeSucceeded, repository.AdvanceFields{ChargeID: charge.ID}); err != nil {
			return snapshot, err
		}
		metrics.Charges.WithLabelValues("succeeded").Inc()
		return snapshot, nil

	case models.ChargeStatusRequiresConfirmation:
		// Not a terminal outcome: record the charge id so webhooks and the
		// confirm endpoint can find this row, but stay in CHARGE_PENDING.
		if err := o.ledger.SetProcessorRefs(ctx, txn.ID, repository.AdvanceFields{ChargeID: charge.ID}); err != nil {
			return snapshot, &ServiceError{Code: ErrCodeInternalError, Message: "failed to record charge id", Err: err}
		}
		txn.ChargeID = charge.ID
		metrics.Charges.WithLabelValues("requires_confirmation").Inc()
		return snapshot, nil

	default:
		if err := o.advance(ctx, txn, models.StateChargeFailed, repository.AdvanceFields{
			ChargeID:    charge.ID,
			FailureCode: ErrCodeCardDeclined,
		}); err != nil {
			return snapshot, err
		}
		metrics.Charges.WithLabelValues("failed").Inc()
		return snapshot, &ServiceError{
			Code:    ErrCodeCardDeclined,
			Message: "charge was not completed by the processor",
		}
	}
}

// classifyChargeError maps a processor error from the charge step onto the
// ledger and the service error taxonomy. Permanent declines settle the row
// in CHARGE_FAILED; transient failures and pending authentication leave it
// in CHARGE_PENDING for the webhook, confirm endpoint or sweep to resolve.
// A caller-side timeout must never be read as a failed charge.
func (o *Orchestrator) classifyChargeError(ctx context.Context, txn *models.Transaction, err error) error {
	switch {
	case processor.IsAuthenticationRequired(err):
		metrics.Charges.WithLabelValues("requires_confirmation").Inc()
		return &ServiceError{
			Code:    ErrCodeAuthenticationRequired,
			Message: "charge requires user authentication before it can complete",
			Err:     err,
		}

	case processor.IsCardDeclined(err):
		metrics.Charges.WithLabelValues("declined").Inc()
		if advErr := o.advance(ctx, txn, models.StateChargeFailed, repository.AdvanceFields{FailureCode: ErrCodeCardDeclined}); advErr != nil {
			return advErr
		}
		return &ServiceError{Code: ErrCodeCardDeclined, Message: "card was declined", Err: err}

	case processor.IsTransient(err):
		metrics.Charges.WithLabelValues("unavailable").Inc()
		return &ServiceError{
			Code:    ErrCodeServiceUnavailable,
			Message: "payment processor unavailable, charge outcome pending",
			Err:     err,
		}

	default:
		metrics.Charges.WithLabelValues("failed").Inc()
		if advErr := o.advance(ctx, txn, models.StateChargeFailed, repository.AdvanceFields{FailureCode: ErrCodeInternalError}); advErr != nil {
			return advErr
		}
		return &ServiceError{Code: ErrCodeInternalError, Message: "charge failed", Err: err}
	}
}

// resumeTransfer drives the transfer step for a payment whose charge has
// settled, re-resolving the recipient so freshly enabled payouts are seen.
func (o *Orchestrator) resumeTransfer(ctx context.Context, txn *models.Transaction) (*models.Transfer, error) {
	recipient, err := o.directory.Resolve(ctx, txn.RecipientUserID)
	if err != nil {
		return nil, mapDirectoryError(err, txn.RecipientUserID)
	}
	return o.runTransfer(ctx, txn, recipient)
}

// runTransfer executes the transfer step. Only legal once the charge has
// succeeded; transfer.amount equals charge.amount and the idempotency key is
// derived from the charge id, so no retry path can double-pay the recipient.
func (o *Orchestrator) runTransfer(ctx context.Context, txn *models.Transaction, recipient *models.AccountMapping) (*models.Transfer, error) {
	if txn.ChargeID == "" {
		return nil, &ServiceError{Code: ErrCodeInvalidState, Message: "transfer requires a settled charge"}
	}

	if txn.State != models.StateTransferPending {
		if err := o.advance(ctx, txn, models.StateTransferPending, repository.AdvanceFields{}); err != nil {
			return nil, err
		}
	}

	if !recipient.PayoutsEnabled {
		metrics.Transfers.WithLabelValues("destination_not_payable").Inc()
		if err := o.advance(ctx, txn, models.StateTransferFailed, repository.AdvanceFields{FailureCode: ErrCodeDestinationNotPayable}); err != nil {
			return nil, err
		}
		return nil, &ServiceError{
			Code:    ErrCodeDestinationNotPayable,
			Message: fmt.Sprintf("destination account for user %s is not payout-enabled yet", txn.RecipientUserID),
		}
	}

	transferReq := processor.TransferRequest{
		DestinationAccountID: recipient.ProcessorPayeeAcctID,
		Currency:             txn.Currency,
		SourceCharge:         txn.ChargeID,
		AmountCents:          txn.AmountCents,
	}

	transfer, err := o.processor.CreateTransfer(ctx, transferReq, TransferKey(txn.ChargeID))
	if err != nil {
		return nil, o.classifyTransferError(ctx, txn, err)
	}

	return o.applyTransferOutcome(ctx, txn, transfer)
}

// applyTransferOutcome records a processor transfer outcome on the ledger
func (o *Orchestrator) applyTransferOutcome(ctx context.Context, txn *models.Transaction, transfer *processor.Transfer) (*models.Transfer, error) {
	snapshot := transferSnapshot(transfer)

	switch snapshot.Status {
	case models.TransferStatusPaid:
		if err := o.advance(ctx, txn, models.StateTransferSucceeded, repository.AdvanceFields{TransferID: transfer.ID}); err != nil {
			return snapshot, err
		}
		metrics.Transfers.WithLabelValues("succeeded").Inc()
		return snapshot, nil

	case models.TransferStatusPending:
		// Transfer accepted but not settled; the transfer.paid webhook
		// finishes the saga.
		if err := o.ledger.SetProcessorRefs(ctx, txn.ID, repository.AdvanceFields{TransferID: transfer.ID}); err != nil {
			return snapshot, &ServiceError{Code: ErrCodeInternalError, Message: "failed to record transfer id", Err: err}
		}
		txn.TransferID = transfer.ID
		metrics.Transfers.WithLabelValues("pending").Inc()
		return snapshot, nil

	default:
		if err := o.advance(ctx, txn, models.StateTransferFailed, repository.AdvanceFields{
			TransferID:  transfer.ID,
			FailureCode: string(snapshot.Status),
		}); err != nil {
			return snapshot, err
		}
		metrics.Transfers.WithLabelValues("failed").Inc()
		return snapshot, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: "transfer was not completed by the processor",
		}
	}
}

// classifyTransferError maps a processor error from the transfer step. The
// charge stays settled no matter what: TRANSFER_FAILED is a recoverable
// state, never an automatic refund.
func (o *Orchestrator) classifyTransferError(ctx context.Context, txn *models.Transaction, err error) error {
	switch {
	case processor.IsDestinationNotPayable(err):
		metrics.Transfers.WithLabelValues("destination_not_payable").Inc()
		if advErr := o.advance(ctx, txn, models.StateTransferFailed, repository.AdvanceFields{FailureCode: ErrCodeDestinationNotPayable}); advErr != nil {
			return advErr
		}
		return &ServiceError{
			Code:    ErrCodeDestinationNotPayable,
			Message: "destination account is not payout-enabled yet",
			Err:     err,
		}

	case processor.IsTransient(err):
		// Stay in TRANSFER_PENDING; the sweep retries with the same
		// deterministic key.
		metrics.Transfers.WithLabelValues("unavailable").Inc()
		return &ServiceError{
			Code:    ErrCodeServiceUnavailable,
			Message: "payment processor unavailable, transfer outcome pending",
			Err:     err,
		}

	default:
		metrics.Transfers.WithLabelValues("failed").Inc()
		if advErr := o.advance(ctx, txn, models.StateTransferFailed, repository.AdvanceFields{FailureCode: ErrCodeInternalError}); advErr != nil {
			return advErr
		}
		return &ServiceError{Code: ErrCodeInternalError, Message: "transfer failed", Err: err}
	}
}

func chargeSnapshot(charge *processor.Charge) *models.Charge {
	return &models.Charge{
		ID:              charge.ID,
		CustomerID:      charge.CustomerID,
		PaymentMethodID: charge.PaymentMethodID,
		Currency:        charge.Currency,
		Status:          models.ChargeStatus(charge.Status),
		Metadata:        charge.Metadata,
		AmountCents:     charge.AmountCents,
	}
}

func transferSnapshot(transfer *processor.Transfer) *models.Transfer {
	return &models.Transfer{
		ID:                   transfer.ID,
		DestinationAccountID: transfer.DestinationAccountID,
		SourceChargeID:       transfer.SourceCharge,
		Currency:             transfer.Currency,
		Status:               models.TransferStatus(transfer.Status),
		AmountCents:          transfer.AmountCents,
	}
}
