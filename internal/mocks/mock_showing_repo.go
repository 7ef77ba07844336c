package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cinetick/booking-platform/internal/domain"
)

type MockShowingRepo struct {
	mock.Mock
	domain.ShowingRepository
}

func (m *MockShowingRepo) GetById(ctx context.Context, id int) (*domain.Showing, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Showing), args.Error(1)
}
