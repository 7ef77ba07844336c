package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cinetick/booking-platform/internal/domain"
)

type MockUserRepo struct {
	mock.Mock
	domain.UserRepository
}

func (m *MockUserRepo) GetById(ctx context.Context, id int) (*domain.User, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
