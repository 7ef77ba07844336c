package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// CallbackData is the flat key-value payload a gateway posts back on its
// IPN/webhook channel.
type CallbackData map[string]string

type InitiateResult struct {
	Success       bool
	Status        string
	RedirectURL   string
	TransactionID string
	FailReason    string
	Raw           []byte
}

type VerificationResult struct {
	Success bool
	Status  string
	Raw     []byte
}

// PaymentGateway is the capability every concrete provider implements. A
// constructor validates its credentials and returns a *ConfigError when they
// are absent, so a misconfigured gateway fails at startup rather than
// per-request.
type PaymentGateway interface {
	Name() string

	InitializePayment(
		ctx context.Context,
		paymentID string,
		amount decimal.Decimal,
		currency string,
		customer CustomerInfo,
	) (*InitiateResult, error)

	VerifyPayment(ctx context.Context, transactionID string, amount decimal.Decimal, callback CallbackData) (*VerificationResult, error)
}

type ConfigError struct {
	Gateway string
	Field   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s gateway: %s is not configured", e.Gateway, e.Field)
}

// ProviderError wraps a network or provider-side failure during initialize or
// verify. Reason is a stable, user-safe string; the raw provider payload
// stays out of it.
type ProviderError struct {
	Gateway string
	Reason  string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s gateway: %s: %v", e.Gateway, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s gateway: %s", e.Gateway, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
