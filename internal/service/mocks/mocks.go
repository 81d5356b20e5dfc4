// Package mocks provides testify mocks for the service-layer interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

var (
	_ service.PaymentInitiator = (*MockPaymentInitiator)(nil)
	_ service.Directory        = (*MockDirectory)(nil)
)

// MockPaymentInitiator mocks service.PaymentInitiator
type MockPaymentInitiator struct {
	mock.Mock
}

// NewMockPaymentInitiator creates a mock whose expectations are asserted on
// test cleanup.
func NewMockPaymentInitiator(t *testing.T) *MockPaymentInitiator {
	m := &MockPaymentInitiator{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPaymentInitiator) InitiatePayment(ctx context.Context, req service.InitiateRequest) (*service.PaymentResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*service.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentInitiator) ConfirmTransfer(ctx context.Context, chargeID string, userConsent bool) (*service.PaymentResult, error) {
	args := m.Called(ctx, chargeID, userConsent)
	if res := args.Get(0); res != nil {
		return res.(*service.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentInitiator) GetStatus(ctx context.Context, ref string) (*service.PaymentResult, error) {
	args := m.Called(ctx, ref)
	if res := args.Get(0); res != nil {
		return res.(*service.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentInitiator) RetryTransfer(ctx context.Context, transactionID uuid.UUID) (*service.PaymentResult, error) {
	args := m.Called(ctx, transactionID)
	if res := args.Get(0); res != nil {
		return res.(*service.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentInitiator) Refund(ctx context.Context, transactionID uuid.UUID, amountCents int64) (*service.PaymentResult, error) {
	args := m.Called(ctx, transactionID, amountCents)
	if res := args.Get(0); res != nil {
		return res.(*service.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDirectory mocks service.Directory
type MockDirectory struct {
	mock.Mock
}

// NewMockDirectory creates a mock whose expectations are asserted on test
// cleanup.
func NewMockDirectory(t *testing.T) *MockDirectory {
	m := &MockDirectory{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockDirectory) Resolve(ctx context.Context, userID string) (*models.AccountMapping, error) {
	args := m.Called(ctx, userID)
	if mapping := args.Get(0); mapping != nil {
		return mapping.(*models.AccountMapping), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) Ensure(ctx context.Context, userID, email string) (*models.AccountMapping, error) {
	args := m.Called(ctx, userID, email)
	if mapping := args.Get(0); mapping != nil {
		return mapping.(*models.AccountMapping), args.Error(1)
	}
	return nil, args.Error(1)
}
