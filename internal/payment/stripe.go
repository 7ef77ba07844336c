package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/cinetick/booking-platform/internal/domain"
)

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
}

// StripeGateway sells the whole booking as a single checkout-session line
// item. The session id doubles as the gateway transaction id, so verification
// is a session lookup.
type StripeGateway struct {
	config StripeConfig
}

func NewStripeGateway(config StripeConfig) (*StripeGateway, error) {
	if config.SecretKey == "" {
		return nil, &domain.ConfigError{Gateway: "stripe", Field: "secret key"}
	}

	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) InitializePayment(
	ctx context.Context,
	paymentID string,
	amount decimal.Decimal,
	currency string,
	customer domain.CustomerInfo) (*domain.InitiateResult, error) {

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Movie tickets"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.config.SuccessURL),
		CancelURL:  stripe.String(g.config.CancelURL),
		Metadata: map[string]string{
			"payment_id": paymentID,
		},
		CustomerEmail:     stripe.String(customer.Email),
		ClientReferenceID: stripe.String(paymentID),
	}

	checkoutSession, err := session.New(params)
	if err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "checkout session creation failed", Err: err}
	}

	raw, _ := json.Marshal(map[string]string{
		"checkout_session_id": checkoutSession.ID,
		"url":                 checkoutSession.URL,
		"status":              string(checkoutSession.Status),
	})

	return &domain.InitiateResult{
		Success:       true,
		Status:        string(checkoutSession.Status),
		RedirectURL:   checkoutSession.URL,
		TransactionID: checkoutSession.ID,
		Raw:           raw,
	}, nil
}

func (g *StripeGateway) VerifyPayment(
	ctx context.Context,
	transactionID string,
	amount decimal.Decimal,
	callback domain.CallbackData) (*domain.VerificationResult, error) {

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}

	checkoutSession, err := session.Get(transactionID, params)
	if err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "checkout session lookup failed", Err: err}
	}

	raw, _ := json.Marshal(map[string]string{
		"checkout_session_id": checkoutSession.ID,
		"status":              string(checkoutSession.Status),
		"payment_status":      string(checkoutSession.PaymentStatus),
	})

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	return &domain.VerificationResult{
		Success: checkoutSession.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid &&
			checkoutSession.AmountTotal == amountCents,
		Status: string(checkoutSession.PaymentStatus),
		Raw:    raw,
	}, nil
}
