package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cinetick/booking-platform/internal/domain"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) GetById(ctx context.Context, id uuid.UUID) (*domain.BookingDetail, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDetail), args.Error(1)
}

func (m *MockBookingRepo) GetSummaries(
	ctx context.Context,
	filter domain.BookingFilter,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	args := m.Called(ctx, filter, pagination)

	var summaries []domain.BookingSummary
	if args.Get(0) != nil {
		summaries = args.Get(0).([]domain.BookingSummary)
	}

	var metadata *domain.Metadata
	if args.Get(1) != nil {
		metadata = args.Get(1).(*domain.Metadata)
	}

	return summaries, metadata, args.Error(2)
}

func (m *MockBookingRepo) CancelStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
