// Package idempotency turns caller-supplied keys into at-most-once
// orchestration attempts.
package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/google/uuid"
)

// ClaimResult is the outcome of a key claim. When IsNew is false,
// Transaction is the attempt that already holds the key.
type ClaimResult struct {
	Transaction *models.Transaction
	IsNew       bool
}

// Manager claims idempotency keys atomically. The claim rides on the unique
// constraint of transactions.idempotency_key: exactly one concurrent caller
// creates the ledger row, everyone else is routed to it.
type Manager struct {
	db           *db.DB
	transactions repository.TransactionRepository
	logger       *slog.Logger
	keyTTL       time.Duration
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewManager creates a Manager
func NewManager(database *db.DB, transactions repository.TransactionRepository, logger *slog.Logger, keyTTL, pollInterval, pollTimeout time.Duration) *Manager {
	return &Manager{
		db:           database,
		transactions: transactions,
		logger:       logger,
		keyTTL:       keyTTL,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// Claim binds the key to a freshly created ledger row in INITIATED state, or
// reports the transaction that already holds it. Row creation and key
// recording happen in one database transaction.
func (m *Manager) Claim(ctx context.Context, key string, draft *models.Transaction) (*ClaimResult, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to start claim transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	txTransactions := repository.NewTransactionRepository(tx)
	txKeys := repository.NewIdempotencyRepository(tx)

	draft.IdempotencyKey = key
	draft.State = models.StateInitiated

	err = txTransactions.Create(ctx, draft)
	if errors.Is(err, models.ErrDuplicateTransaction) {
		existing, findErr := m.transactions.FindByIdempotencyKey(ctx, key)
		if findErr != nil {
			return nil, fmt.Errorf("key %q claimed but transaction missing: %w", key, findErr)
		}
		return &ClaimResult{Transaction: existing, IsNew: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := txKeys.Record(ctx, key, draft.ID, m.keyTTL); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return &ClaimResult{Transaction: draft, IsNew: true}, nil
}

// AwaitResult polls the ledger row until it leaves an in-flight state or the
// bounded wait elapses, then returns the row as it stands. Used by claim
// losers so a concurrent retry receives the first caller's result instead of
// initiating a second charge.
func (m *Manager) AwaitResult(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	deadline := time.NewTimer(m.pollTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(m.pollInterval)
	defer tick.Stop()

	for {
		txn, err := m.transactions.FindByID(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if !txn.State.InFlight() {
			return txn, nil
		}

		select {
		case <-ctx.Done():
			return txn, nil
		case <-deadline.C:
			m.logger.Debug("await result timed out, returning in-flight state",
				"transaction_id", transactionID,
				"state", txn.State,
			)
			return txn, nil
		case <-tick.C:
		}
	}
}
