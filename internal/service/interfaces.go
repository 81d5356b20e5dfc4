package service

import (
	"context"

	"github.com/KDR9MGR/digital-payments-sub001/internal/idempotency"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/google/uuid"
)

// Directory resolves internal users to processor identities
type Directory interface {
	Resolve(ctx context.Context, userID string) (*models.AccountMapping, error)
	Ensure(ctx context.Context, userID, email string) (*models.AccountMapping, error)
}

// KeyClaimer claims idempotency keys for orchestration attempts
type KeyClaimer interface {
	Claim(ctx context.Context, key string, draft *models.Transaction) (*idempotency.ClaimResult, error)
	AwaitResult(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
}

// PaymentInitiator is the synchronous saga surface exposed to HTTP handlers
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, req InitiateRequest) (*PaymentResult, error)
	ConfirmTransfer(ctx context.Context, chargeID string, userConsent bool) (*PaymentResult, error)
	GetStatus(ctx context.Context, ref string) (*PaymentResult, error)
	RetryTransfer(ctx context.Context, transactionID uuid.UUID) (*PaymentResult, error)
	Refund(ctx context.Context, transactionID uuid.UUID, amountCents int64) (*PaymentResult, error)
}

var _ PaymentInitiator = (*Orchestrator)(nil)
