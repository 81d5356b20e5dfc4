// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
)

var (
	_ repository.TransactionRepository  = (*MockTransactionRepository)(nil)
	_ repository.AccountRepository      = (*MockAccountRepository)(nil)
	_ repository.IdempotencyRepository  = (*MockIdempotencyRepository)(nil)
	_ repository.WebhookEventRepository = (*MockWebhookEventRepository)(nil)
)

// MockTransactionRepository mocks repository.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

// NewMockTransactionRepository creates a mock whose expectations are
// asserted on test cleanup.
func NewMockTransactionRepository(t *testing.T) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if txn := args.Get(0); txn != nil {
		return txn.(*models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	args := m.Called(ctx, key)
	if txn := args.Get(0); txn != nil {
		return txn.(*models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionRepository) FindByChargeID(ctx context.Context, chargeID string) (*models.Transaction, error) {
	args := m.Called(ctx, chargeID)
	if txn := args.Get(0); txn != nil {
		return txn.(*models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionRepository) AdvanceState(ctx context.Context, id uuid.UUID, to models.TransactionState, fields repository.AdvanceFields) error {
	args := m.Called(ctx, id, to, fields)
	return args.Error(0)
}

func (m *MockTransactionRepository) SetProcessorRefs(ctx context.Context, id uuid.UUID, fields repository.AdvanceFields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	if txns := args.Get(0); txns != nil {
		return txns.([]*models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAccountRepository mocks repository.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock whose expectations are asserted
// on test cleanup.
func NewMockAccountRepository(t *testing.T) *MockAccountRepository {
	m := &MockAccountRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) FindByUserID(ctx context.Context, userID string) (*models.AccountMapping, error) {
	args := m.Called(ctx, userID)
	if mapping := args.Get(0); mapping != nil {
		return mapping.(*models.AccountMapping), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) Upsert(ctx context.Context, mapping *models.AccountMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

// MockIdempotencyRepository mocks repository.IdempotencyRepository
type MockIdempotencyRepository struct {
	mock.Mock
}

// NewMockIdempotencyRepository creates a mock whose expectations are
// asserted on test cleanup.
func NewMockIdempotencyRepository(t *testing.T) *MockIdempotencyRepository {
	m := &MockIdempotencyRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIdempotencyRepository) Record(ctx context.Context, key string, transactionID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, key, transactionID, ttl)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	args := m.Called(ctx, key)
	if rec := args.Get(0); rec != nil {
		return rec.(*models.IdempotencyRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdempotencyRepository) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockWebhookEventRepository mocks repository.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

// NewMockWebhookEventRepository creates a mock whose expectations are
// asserted on test cleanup.
func NewMockWebhookEventRepository(t *testing.T) *MockWebhookEventRepository {
	m := &MockWebhookEventRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	args := m.Called(ctx, eventID, eventType)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) Forget(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}
