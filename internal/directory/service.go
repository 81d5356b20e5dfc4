// Package directory maps internal users to their processor-side identities.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
)

// ErrNotOnboarded indicates the user has no processor mapping yet. The
// caller should be directed to the onboarding flow; payments never create
// mappings just in time.
var ErrNotOnboarded = errors.New("user not onboarded")

// Service resolves and provisions account mappings. It is consulted, not
// owned, by the orchestrator.
type Service struct {
	accounts  repository.AccountRepository
	processor processor.API
	logger    *slog.Logger
}

// NewService creates a directory service
func NewService(accounts repository.AccountRepository, api processor.API, logger *slog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		processor: api,
		logger:    logger,
	}
}

// Resolve returns the processor mapping for a user, failing with
// ErrNotOnboarded when none exists.
func (s *Service) Resolve(ctx context.Context, userID string) (*models.AccountMapping, error) {
	mapping, err := s.accounts.FindByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotOnboarded)
	}
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// Ensure creates the processor customer and connected payee account for a
// user if absent. Repeated calls are no-op reads apart from refreshing the
// capability flags from the processor.
func (s *Service) Ensure(ctx context.Context, userID, email string) (*models.AccountMapping, error) {
	existing, err := s.accounts.FindByUserID(ctx, userID)
	if err == nil {
		return s.refreshCapabilities(ctx, existing)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	customer, err := s.processor.CreateCustomer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor customer: %w", err)
	}

	payee, err := s.processor.CreateConnectedAccount(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create connected account: %w", err)
	}

	mapping := &models.AccountMapping{
		UserID:               userID,
		ProcessorCustomerID:  customer.ID,
		ProcessorPayeeAcctID: payee.ID,
		ChargesEnabled:       payee.ChargesEnabled,
		PayoutsEnabled:       payee.PayoutsEnabled,
	}

	if err := s.accounts.Upsert(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.Info("onboarded user with processor",
		"user_id", userID,
		"customer_id", customer.ID,
		"payee_account_id", payee.ID,
	)

	return mapping, nil
}

// refreshCapabilities re-reads capability flags from the processor. A
// failure here is not fatal: the stored flags are returned and the transfer
// step still enforces payability against the processor's answer.
func (s *Service) refreshCapabilities(ctx context.Context, mapping *models.AccountMapping) (*models.AccountMapping, error) {
	account, err := s.processor.GetConnectedAccount(ctx, mapping.ProcessorPayeeAcctID)
	if err != nil {
		s.logger.Warn("failed to refresh account capabilities",
			"user_id", mapping.UserID,
			"error", err,
		)
		return mapping, nil
	}

	if account.ChargesEnabled != mapping.ChargesEnabled || account.PayoutsEnabled != mapping.PayoutsEnabled {
		mapping.ChargesEnabled = account.ChargesEnabled
		mapping.PayoutsEnabled = account.PayoutsEnabled
		if err := s.accounts.Upsert(ctx, mapping); err != nil {
			return nil, err
		}
	}

	return mapping, nil
}
