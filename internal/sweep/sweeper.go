// Package sweep re-drives payments that stalled between saga steps and
// bounds idempotency key storage.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/config"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
)

// Saga is the slice of the orchestrator the sweep drives
type Saga interface {
	ApplyChargeSucceeded(ctx context.Context, charge *processor.Charge) error
	ApplyChargeFailed(ctx context.Context, charge *processor.Charge, failureCode string) error
}

// Sweeper periodically re-drives in-flight ledger rows whose synchronous
// path died: CHARGE_PENDING rows are resolved by polling the processor,
// settled charges without a terminal transfer get the transfer re-run with
// its deterministic key. Sweep failures are logged and retried next tick;
// the original caller got their answer long ago.
type Sweeper struct {
	ledger    repository.TransactionRepository
	keys      repository.IdempotencyRepository
	saga      Saga
	processor processor.API
	logger    *slog.Logger
	cfg       config.SweepConfig
}

const sweepBatchSize = 100

// NewSweeper creates a Sweeper
func NewSweeper(
	ledger repository.TransactionRepository,
	keys repository.IdempotencyRepository,
	saga Saga,
	api processor.API,
	logger *slog.Logger,
	cfg config.SweepConfig,
) *Sweeper {
	return &Sweeper{
		ledger:    ledger,
		keys:      keys,
		saga:      saga,
		processor: api,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run loops until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("reconciliation sweep started",
		"interval", s.cfg.Interval,
		"stuck_after", s.cfg.StuckAfter,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation sweep stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass
func (s *Sweeper) RunOnce(ctx context.Context) {
	if purged, err := s.keys.PurgeExpired(ctx); err != nil {
		s.logger.Error("failed to purge expired idempotency keys", "error", err)
	} else if purged > 0 {
		s.logger.Info("purged expired idempotency keys", "count", purged)
	}

	stuck, err := s.ledger.FindStuck(ctx, time.Now().Add(-s.cfg.StuckAfter), sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to list stuck transactions", "error", err)
		return
	}

	for _, txn := range stuck {
		if err := s.redrive(ctx, txn); err != nil {
			s.logger.Warn("failed to re-drive stuck transaction",
				"transaction_id", txn.ID,
				"state", txn.State,
				"error", err,
			)
		}
	}
}

func (s *Sweeper) redrive(ctx context.Context, txn *models.Transaction) error {
	switch txn.State {
	case models.StateChargePending:
		return s.resolveChargeOutcome(ctx, txn)

	case models.StateChargeSucceeded, models.StateTransferPending:
		// The charge settled; only the transfer leg is missing or unsettled.
		charge := &processor.Charge{
			ID:     txn.ChargeID,
			Status: string(models.ChargeStatusSucceeded),
		}
		return s.saga.ApplyChargeSucceeded(ctx, charge)

	default:
		return nil
	}
}

// resolveChargeOutcome polls the processor for the true terminal state of a
// charge whose synchronous path never heard back. A timed-out call is not a
// failure: only the processor's answer settles the row.
func (s *Sweeper) resolveChargeOutcome(ctx context.Context, txn *models.Transaction) error {
	if txn.ChargeID == "" {
		// The process died before the processor returned a charge id, so
		// there is nothing to poll. The payment method only travels in the
		// initiate request, so this row is resumed when the caller retries
		// with the same idempotency key: the orchestrator re-drives the
		// charge for chargeless CHARGE_PENDING rows.
		s.logger.Debug("stuck transaction has no charge id to poll", "transaction_id", txn.ID)
		return nil
	}

	charge, err := s.processor.GetCharge(ctx, txn.ChargeID)
	if err != nil {
		return err
	}

	switch models.ChargeStatus(charge.Status) {
	case models.ChargeStatusSucceeded:
		return s.saga.ApplyChargeSucceeded(ctx, charge)
	case models.ChargeStatusFailed:
		return s.saga.ApplyChargeFailed(ctx, charge, charge.FailureCode)
	default:
		// Still awaiting user authentication; not ours to force.
		return nil
	}
}
