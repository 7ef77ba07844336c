package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cinetick/booking-platform/internal/notifier"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendBookingConfirmation(ctx context.Context, confirmation notifier.BookingConfirmation) error {
	args := m.Called(ctx, confirmation)
	return args.Error(0)
}
