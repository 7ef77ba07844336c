package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/cinetick/booking-platform/internal/domain"
)

type MockGateway struct {
	mock.Mock
	domain.PaymentGateway

	GatewayName string
}

func (m *MockGateway) Name() string {
	return m.GatewayName
}

func (m *MockGateway) InitializePayment(
	ctx context.Context,
	paymentID string,
	amount decimal.Decimal,
	currency string,
	customer domain.CustomerInfo) (*domain.InitiateResult, error) {

	args := m.Called(ctx, paymentID, amount, currency, customer)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InitiateResult), args.Error(1)
}

func (m *MockGateway) VerifyPayment(ctx context.Context, transactionID string, amount decimal.Decimal, callback domain.CallbackData) (*domain.VerificationResult, error) {
	args := m.Called(ctx, transactionID, amount, callback)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResult), args.Error(1)
}
