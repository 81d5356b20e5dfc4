// Package repository provides data access layer implementations for the
// payments API.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
)

// AccountRepository defines the interface for account mapping data access
type AccountRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.AccountMapping, error)
	Upsert(ctx context.Context, mapping *models.AccountMapping) error
}

// accountRepository implements AccountRepository
type accountRepository struct {
	db db.Querier
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(q db.Querier) AccountRepository {
	return &accountRepository{db: q}
}

// FindByUserID retrieves the processor mapping for an internal user
func (r *accountRepository) FindByUserID(ctx context.Context, userID string) (*models.AccountMapping, error) {
	query := `
		SELECT user_id, processor_customer_id, processor_payee_account_id,
		       charges_enabled, payouts_enabled, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`

	var mapping models.AccountMapping
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&mapping.UserID,
		&mapping.ProcessorCustomerID,
		&mapping.ProcessorPayeeAcctID,
		&mapping.ChargesEnabled,
		&mapping.PayoutsEnabled,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account mapping not found: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account mapping: %w", err)
	}

	return &mapping, nil
}

// Upsert inserts the mapping or refreshes the capability flags of an
// existing one. The processor ids never change once assigned.
func (r *accountRepository) Upsert(ctx context.Context, mapping *models.AccountMapping) error {
	query := `
		INSERT INTO accounts (user_id, processor_customer_id, processor_payee_account_id,
		                      charges_enabled, payouts_enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET charges_enabled = EXCLUDED.charges_enabled,
		    payouts_enabled = EXCLUDED.payouts_enabled,
		    updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		mapping.UserID,
		mapping.ProcessorCustomerID,
		mapping.ProcessorPayeeAcctID,
		mapping.ChargesEnabled,
		mapping.PayoutsEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account mapping: %w", err)
	}

	return nil
}
