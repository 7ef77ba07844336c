package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cinetick/booking-platform/internal/domain"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetById(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) MarkInitiated(ctx context.Context, id uuid.UUID, transactionID string, response []byte) error {
	args := m.Called(ctx, id, transactionID, response)
	return args.Error(0)
}

func (m *MockPaymentRepo) MarkInitiationFailed(ctx context.Context, id uuid.UUID, reason string, response []byte) error {
	args := m.Called(ctx, id, reason, response)
	return args.Error(0)
}

func (m *MockPaymentRepo) Finalize(
	ctx context.Context,
	id uuid.UUID,
	status domain.PaymentStatus,
	bookingStatus domain.BookingStatus,
	reason string,
	response []byte) error {

	args := m.Called(ctx, id, status, bookingStatus, reason, response)
	return args.Error(0)
}
