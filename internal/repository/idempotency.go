package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/google/uuid"
)

// IdempotencyRepository defines the interface for idempotency key storage.
// The claim point for a key is the unique constraint on
// transactions.idempotency_key; this table records the binding with its
// retention window so old keys can be purged. Purging bounds storage only;
// it never re-opens a key for execution.
type IdempotencyRepository interface {
	Record(ctx context.Context, key string, transactionID uuid.UUID, ttl time.Duration) error
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// idempotencyRepository implements IdempotencyRepository
type idempotencyRepository struct {
	db db.Querier
}

// NewIdempotencyRepository creates a new IdempotencyRepository
func NewIdempotencyRepository(q db.Querier) IdempotencyRepository {
	return &idempotencyRepository{db: q}
}

// Record stores the key-to-transaction binding. Safe to call twice.
func (r *idempotencyRepository) Record(ctx context.Context, key string, transactionID uuid.UUID, ttl time.Duration) error {
	query := `
		INSERT INTO idempotency_keys (key, transaction_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, key, transactionID, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}

	return nil
}

// Find retrieves the binding for a key
func (r *idempotencyRepository) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	query := `
		SELECT key, transaction_id, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1
	`

	var rec models.IdempotencyRecord
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key, &rec.TransactionID, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find idempotency key: %w", err)
	}

	return &rec, nil
}

// PurgeExpired removes keys past their retention window
func (r *idempotencyRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired idempotency keys: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
