// Package service implements the payment saga: charge the sender, transfer
// captured funds to the recipient's connected account, and keep the ledger
// truthful when either step fails independently.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KDR9MGR/digital-payments-sub001/internal/directory"
	"github.com/KDR9MGR/digital-payments-sub001/internal/metrics"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/google/uuid"
)

// InitiateRequest carries one validated P2P payment request
type InitiateRequest struct {
	SenderUserID    string
	RecipientUserID string
	Currency        string
	PaymentMethodID string
	CustomerID      string // optional override of the sender's stored customer id
	IdempotencyKey  string
	AmountCents     int64
}

// PaymentResult is the synchronous view of a payment returned to callers.
// Charge and Transfer are processor snapshots and may be nil when the
// corresponding step has not happened.
type PaymentResult struct {
	Transaction *models.Transaction
	Charge      *models.Charge
	Transfer    *models.Transfer
}

// Orchestrator coordinates the two-step saga. It owns the ledger rows;
// webhooks and the sweep advance them through the same step methods, so
// every path shares the deterministic transfer idempotency key.
type Orchestrator struct {
	ledger    repository.TransactionRepository
	directory Directory
	keys      KeyClaimer
	processor processor.API
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator with its collaborators injected
func NewOrchestrator(
	ledger repository.TransactionRepository,
	dir Directory,
	keys KeyClaimer,
	api processor.API,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		directory: dir,
		keys:      keys,
		processor: api,
		logger:    logger,
	}
}

// Processor exposes the underlying processor client so the background
// sweep can poll charge outcomes through the same circuit breaker.
func (o *Orchestrator) Processor() processor.API {
	return o.processor
}

// InitiatePayment runs the saga for one logical payment. Calling it twice
// with the same idempotency key never creates a second charge: the losing
// call waits for the first attempt's outcome and returns it.
//
// A failed transfer after a successful charge comes back as a result in
// TRANSFER_FAILED together with the classifying error; the charge is never
// rolled back automatically. Refunding captured funds is a separate,
// explicit operator action.
func (o *Orchestrator) InitiatePayment(ctx context.Context, req InitiateRequest) (*PaymentResult, error) {
	if err := o.validateInitiate(req); err != nil {
		return nil, err
	}

	sender, err := o.directory.Resolve(ctx, req.SenderUserID)
	if err != nil {
		return nil, mapDirectoryError(err, req.SenderUserID)
	}
	recipient, err := o.directory.Resolve(ctx, req.RecipientUserID)
	if err != nil {
		return nil, mapDirectoryError(err, req.RecipientUserID)
	}

	draft := &models.Transaction{
		SenderUserID:    req.SenderUserID,
		RecipientUserID: req.RecipientUserID,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
	}

	claim, err := o.keys.Claim(ctx, req.IdempotencyKey, draft)
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeInternalError, Message: "failed to claim idempotency key", Err: err}
	}

	if !claim.IsNew {
		existing := claim.Transaction
		if existing.State == models.StateChargePending && existing.ChargeID == "" {
			// A previous attempt died after claiming the key but before the
			// processor returned a charge id. Nothing can resolve that row
			// on its own: no charge exists, so no webhook will arrive and
			// the sweep has nothing to poll. The retry carries the payment
			// method, so re-drive the charge here; the processor
			// deduplicates on the same idempotency key, so at most one
			// charge ever exists for this payment.
			o.logger.Info("resuming attempt that died before charge creation",
				"idempotency_key", req.IdempotencyKey,
				"transaction_id", existing.ID,
			)
			return o.driveSaga(ctx, existing, sender, recipient, req)
		}

		o.logger.Info("duplicate initiate request, returning existing attempt",
			"idempotency_key", req.IdempotencyKey,
			"transaction_id", existing.ID,
		)
		txn, err := o.keys.AwaitResult(ctx, existing.ID)
		if err != nil {
			return nil, &ServiceError{Code: ErrCodeInternalError, Message: "failed to read existing attempt", Err: err}
		}
		return o.snapshotResult(ctx, txn), nil
	}

	metrics.PaymentsInitiated.Inc()
	txn := claim.Transaction

	if err := o.advance(ctx, txn, models.StateChargePending, repository.AdvanceFields{}); err != nil {
		return nil, err
	}

	return o.driveSaga(ctx, txn, sender, recipient, req)
}

// driveSaga runs the charge step and, when the charge settles synchronously,
// the transfer step. Expects the ledger row in CHARGE_PENDING.
func (o *Orchestrator) driveSaga(
	ctx context.Context,
	txn *models.Transaction,
	sender *models.AccountMapping,
	recipient *models.AccountMapping,
	req InitiateRequest,
) (*PaymentResult, error) {
	charge, chargeErr := o.runCharge(ctx, txn, sender, recipient, req)
	if chargeErr != nil {
		return &PaymentResult{Transaction: txn, Charge: charge}, chargeErr
	}

	if charge.Status == models.ChargeStatusRequiresConfirmation {
		// User action needed before the charge settles; the confirm
		// endpoint or a webhook resumes the saga from here.
		return &PaymentResult{Transaction: txn, Charge: charge}, &ServiceError{
			Code:    ErrCodeAuthenticationRequired,
			Message: "charge requires user authentication before it can complete",
		}
	}

	transfer, transferErr := o.runTransfer(ctx, txn, recipient)
	return &PaymentResult{Transaction: txn, Charge: charge, Transfer: transfer}, transferErr
}

// ConfirmTransfer resumes a payment after user consent: it completes a
// charge that required authentication and then drives the transfer, or
// retries the transfer of a payment whose charge already settled. The charge
// step is never re-run.
func (o *Orchestrator) ConfirmTransfer(ctx context.Context, chargeID string, userConsent bool) (*PaymentResult, error) {
	if !userConsent {
		return nil, &ServiceError{Code: ErrCodeConsentRequired, Message: "user consent is required to complete the transfer"}
	}
	if chargeID == "" {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: "payment_intent_id is required"}
	}

	txn, err := o.ledger.FindByChargeID(ctx, chargeID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	switch txn.State {
	case models.StateChargePending:
		charge, err := o.confirmPendingCharge(ctx, txn)
		if err != nil {
			return &PaymentResult{Transaction: txn, Charge: charge}, err
		}
		transfer, transferErr := o.resumeTransfer(ctx, txn)
		return &PaymentResult{Transaction: txn, Charge: charge, Transfer: transfer}, transferErr

	case models.StateChargeSucceeded, models.StateTransferPending, models.StateTransferFailed:
		transfer, transferErr := o.resumeTransfer(ctx, txn)
		return o.withSnapshots(ctx, txn, transfer), transferErr

	case models.StateTransferSucceeded:
		// Confirm is idempotent once the payment settled.
		return o.snapshotResult(ctx, txn), nil

	default:
		return nil, &ServiceError{
			Code:    ErrCodeInvalidState,
			Message: fmt.Sprintf("payment in state %s cannot be confirmed", txn.State),
		}
	}
}

// RetryTransfer re-attempts the transfer of a payment stuck in
// TRANSFER_FAILED. Operator action; the settled charge is never re-run.
func (o *Orchestrator) RetryTransfer(ctx context.Context, transactionID uuid.UUID) (*PaymentResult, error) {
	txn, err := o.ledger.FindByID(ctx, transactionID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if txn.State != models.StateTransferFailed {
		return nil, &ServiceError{
			Code:    ErrCodeInvalidState,
			Message: fmt.Sprintf("transfer retry requires TRANSFER_FAILED, payment is %s", txn.State),
		}
	}

	transfer, transferErr := o.resumeTransfer(ctx, txn)
	return o.withSnapshots(ctx, txn, transfer), transferErr
}

// GetStatus returns the current ledger view of a payment. The reference may
// be the internal transaction id or the processor charge id.
func (o *Orchestrator) GetStatus(ctx context.Context, ref string) (*PaymentResult, error) {
	var txn *models.Transaction
	var err error

	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		txn, err = o.ledger.FindByID(ctx, id)
	} else {
		txn, err = o.ledger.FindByChargeID(ctx, ref)
	}
	if err != nil {
		return nil, mapLookupError(err)
	}

	return o.snapshotResult(ctx, txn), nil
}

func (o *Orchestrator) validateInitiate(req InitiateRequest) error {
	if err := ValidateIdempotencyKey(req.IdempotencyKey); err != nil {
		return &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}
	if err := ValidateUserID(req.SenderUserID); err != nil {
		return &ServiceError{Code: ErrCodeValidation, Message: "sender: " + err.Error()}
	}
	if err := ValidateUserID(req.RecipientUserID); err != nil {
		return &ServiceError{Code: ErrCodeValidation, Message: "recipient: " + err.Error()}
	}
	if req.SenderUserID == req.RecipientUserID {
		return &ServiceError{Code: ErrCodeValidation, Message: "sender and recipient must differ"}
	}
	if err := ValidateAmount(req.AmountCents); err != nil {
		return &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}
	if err := ValidateCurrency(req.Currency); err != nil {
		return &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}
	if req.PaymentMethodID == "" {
		return &ServiceError{Code: ErrCodeValidation, Message: "payment_method_id is required"}
	}
	return nil
}

// advance moves the ledger forward, translating a stale transition into an
// internal error for the synchronous path (the row was mutated concurrently,
// which the caller cannot fix).
func (o *Orchestrator) advance(ctx context.Context, txn *models.Transaction, to models.TransactionState, fields repository.AdvanceFields) error {
	if err := o.ledger.AdvanceState(ctx, txn.ID, to, fields); err != nil {
		if errors.Is(err, models.ErrStaleTransition) {
			o.logger.Error("invariant violation: rejected ledger transition",
				"transaction_id", txn.ID,
				"from", txn.State,
				"to", to,
			)
		}
		return &ServiceError{Code: ErrCodeInternalError, Message: "failed to advance payment state", Err: err}
	}

	txn.State = to
	if fields.ChargeID != "" {
		txn.ChargeID = fields.ChargeID
	}
	if fields.TransferID != "" {
		txn.TransferID = fields.TransferID
	}
	if fields.FailureCode != "" {
		txn.FailureCode = fields.FailureCode
	}
	return nil
}

// snapshotResult decorates a ledger row with best-effort processor
// snapshots. Snapshot fetch failures are ignored: the ledger is the answer,
// the snapshots are garnish.
func (o *Orchestrator) snapshotResult(ctx context.Context, txn *models.Transaction) *PaymentResult {
	result := &PaymentResult{Transaction: txn}

	if txn.ChargeID != "" {
		if charge, err := o.processor.GetCharge(ctx, txn.ChargeID); err == nil {
			result.Charge = chargeSnapshot(charge)
		}
	}

	return result
}

func (o *Orchestrator) withSnapshots(ctx context.Context, txn *models.Transaction, transfer *models.Transfer) *PaymentResult {
	result := o.snapshotResult(ctx, txn)
	result.Transfer = transfer
	return result
}

func mapDirectoryError(err error, userID string) error {
	if errors.Is(err, directory.ErrNotOnboarded) {
		return &ServiceError{
			Code:    ErrCodeNotOnboarded,
			Message: fmt.Sprintf("user %s has not completed payment onboarding", userID),
			Err:     err,
		}
	}
	return &ServiceError{Code: ErrCodeInternalError, Message: "failed to resolve account", Err: err}
}

func mapLookupError(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return &ServiceError{Code: ErrCodeTransactionNotFound, Message: "payment not found", Err: err}
	}
	return &ServiceError{Code: ErrCodeInternalError, Message: "failed to load payment", Err: err}
}
