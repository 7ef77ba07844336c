package payment

import (
	"fmt"

	"github.com/cinetick/booking-platform/internal/domain"
)

const (
	GatewaySSLCommerz = "sslcommerz"
	GatewayStripe     = "stripe"
)

// GatewayConfigs carries the credentials of every supported provider. They
// arrive as explicit structs at construction time; a missing credential for
// an enabled gateway is fatal at startup, not per-request.
type GatewayConfigs struct {
	SSLCommerz SSLCommerzConfig
	Stripe     StripeConfig
}

// NewGateway resolves a provider name to a constructed adapter.
func NewGateway(name string, configs GatewayConfigs) (domain.PaymentGateway, error) {
	switch name {
	case GatewaySSLCommerz:
		return NewSSLCommerzGateway(configs.SSLCommerz)
	case GatewayStripe:
		return NewStripeGateway(configs.Stripe)
	default:
		return nil, fmt.Errorf("unknown payment gateway: %s", name)
	}
}

// NewGateways constructs every named gateway, failing on the first
// misconfigured one.
func NewGateways(names []string, configs GatewayConfigs) (map[string]domain.PaymentGateway, error) {
	gateways := make(map[string]domain.PaymentGateway, len(names))

	for _, name := range names {
		gateway, err := NewGateway(name, configs)
		if err != nil {
			return nil, err
		}

		gateways[name] = gateway
	}

	return gateways, nil
}
