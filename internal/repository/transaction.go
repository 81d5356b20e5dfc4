package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AdvanceFields carries the optional columns filled in alongside a state
// advance. Empty strings leave the stored value untouched.
type AdvanceFields struct {
	ChargeID    string
	TransferID  string
	FailureCode string
}

// TransactionRepository defines the interface for ledger data access
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	FindByChargeID(ctx context.Context, chargeID string) (*models.Transaction, error)
	AdvanceState(ctx context.Context, id uuid.UUID, to models.TransactionState, fields AdvanceFields) error
	SetProcessorRefs(ctx context.Context, id uuid.UUID, fields AdvanceFields) error
	FindStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error)
}

// transactionRepository implements TransactionRepository
type transactionRepository struct {
	db db.Querier
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(q db.Querier) TransactionRepository {
	return &transactionRepository{db: q}
}

const transactionColumns = `
	id, idempotency_key, sender_user_id, recipient_user_id, amount_cents,
	currency, charge_id, transfer_id, failure_code, state, created_at, updated_at
`

// Create inserts a new ledger row. The unique constraint on idempotency_key
// makes this the claim point for a logical payment: a second insert with the
// same key fails with ErrDuplicateTransaction.
func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	query := `
		INSERT INTO transactions (id, idempotency_key, sender_user_id, recipient_user_id,
		                          amount_cents, currency, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		txn.ID,
		txn.IdempotencyKey,
		txn.SenderUserID,
		txn.RecipientUserID,
		txn.AmountCents,
		txn.Currency,
		txn.State,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("idempotency key %q already claimed: %w", txn.IdempotencyKey, models.ErrDuplicateTransaction)
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a transaction by its UUID
func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByIdempotencyKey retrieves the transaction claimed by a caller key
func (r *transactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, key))
}

// FindByChargeID locates the transaction a processor charge belongs to.
// Used by the webhook reconciler, which only knows processor ids.
func (r *transactionRepository) FindByChargeID(ctx context.Context, chargeID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE charge_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, chargeID))
}

// AdvanceState moves a transaction forward in its state machine. The write
// is conditional on the row currently sitting in a state from which the
// target is reachable, so stale or duplicated advances touch zero rows and
// come back as ErrStaleTransition instead of corrupting a settled payment.
func (r *transactionRepository) AdvanceState(ctx context.Context, id uuid.UUID, to models.TransactionState, fields AdvanceFields) error {
	prior := models.PriorStates(to)
	if len(prior) == 0 {
		return fmt.Errorf("state %s is not reachable: %w", to, models.ErrStaleTransition)
	}

	from := make([]string, len(prior))
	for i, s := range prior {
		from[i] = string(s)
	}

	query := `
		UPDATE transactions
		SET state = $2,
		    charge_id = COALESCE(NULLIF($3, ''), charge_id),
		    transfer_id = COALESCE(NULLIF($4, ''), transfer_id),
		    failure_code = COALESCE(NULLIF($5, ''), failure_code),
		    updated_at = NOW()
		WHERE id = $1 AND state = ANY($6)
	`

	result, err := r.db.ExecContext(ctx, query,
		id, to, fields.ChargeID, fields.TransferID, fields.FailureCode, pq.Array(from),
	)
	if err != nil {
		return fmt.Errorf("failed to advance transaction state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s cannot move to %s: %w", id, to, models.ErrStaleTransition)
	}

	return nil
}

// SetProcessorRefs records processor ids on a row without moving its state.
// Used when a charge is created but still awaiting user confirmation, so the
// webhook reconciler can find the row by charge id later.
func (r *transactionRepository) SetProcessorRefs(ctx context.Context, id uuid.UUID, fields AdvanceFields) error {
	query := `
		UPDATE transactions
		SET charge_id = COALESCE(NULLIF($2, ''), charge_id),
		    transfer_id = COALESCE(NULLIF($3, ''), transfer_id),
		    failure_code = COALESCE(NULLIF($4, ''), failure_code),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, fields.ChargeID, fields.TransferID, fields.FailureCode)
	if err != nil {
		return fmt.Errorf("failed to set processor refs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// FindStuck returns transactions that have sat in an in-flight state longer
// than the threshold, oldest first, for the sweep to re-drive.
func (r *transactionRepository) FindStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE state = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`

	inFlight := []string{
		string(models.StateChargePending),
		string(models.StateChargeSucceeded),
		string(models.StateTransferPending),
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(inFlight), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // close error is not actionable

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stuck transactions: %w", err)
	}

	return txns, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *transactionRepository) scanOne(row *sql.Row) (*models.Transaction, error) {
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction not found: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.IdempotencyKey,
		&txn.SenderUserID,
		&txn.RecipientUserID,
		&txn.AmountCents,
		&txn.Currency,
		&txn.ChargeID,
		&txn.TransferID,
		&txn.FailureCode,
		&txn.State,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &txn, nil
}
