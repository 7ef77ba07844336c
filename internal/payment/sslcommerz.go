package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinetick/booking-platform/internal/domain"
)

const (
	sslcommerzSandboxSessionURL    = "https://sandbox.sslcommerz.com/gwprocess/v4/api.php"
	sslcommerzLiveSessionURL       = "https://securepay.sslcommerz.com/gwprocess/v4/api.php"
	sslcommerzSandboxValidationURL = "https://sandbox.sslcommerz.com/validator/api/validationserverAPI.php"
	sslcommerzLiveValidationURL    = "https://securepay.sslcommerz.com/validator/api/validationserverAPI.php"
)

type SSLCommerzConfig struct {
	StoreID         string
	StorePassword   string
	Sandbox         bool
	CallbackBaseURL string
}

// SSLCommerzGateway drives the SSLCommerz hosted checkout: a form POST opens
// a session and yields a redirect URL, the outcome arrives on the IPN channel
// and is confirmed against the validation API.
type SSLCommerzGateway struct {
	config        SSLCommerzConfig
	client        *http.Client
	sessionURL    string
	validationURL string
}

func NewSSLCommerzGateway(config SSLCommerzConfig) (*SSLCommerzGateway, error) {
	if config.StoreID == "" {
		return nil, &domain.ConfigError{Gateway: "sslcommerz", Field: "store id"}
	}
	if config.StorePassword == "" {
		return nil, &domain.ConfigError{Gateway: "sslcommerz", Field: "store password"}
	}

	gateway := &SSLCommerzGateway{
		config:        config,
		client:        &http.Client{Timeout: 15 * time.Second},
		sessionURL:    sslcommerzLiveSessionURL,
		validationURL: sslcommerzLiveValidationURL,
	}

	if config.Sandbox {
		gateway.sessionURL = sslcommerzSandboxSessionURL
		gateway.validationURL = sslcommerzSandboxValidationURL
	}

	return gateway, nil
}

func (g *SSLCommerzGateway) Name() string {
	return "sslcommerz"
}

type sslcommerzInitResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (g *SSLCommerzGateway) InitializePayment(
	ctx context.Context,
	paymentID string,
	amount decimal.Decimal,
	currency string,
	customer domain.CustomerInfo) (*domain.InitiateResult, error) {

	base := strings.TrimSuffix(g.config.CallbackBaseURL, "/")

	form := url.Values{}
	form.Set("store_id", g.config.StoreID)
	form.Set("store_passwd", g.config.StorePassword)
	form.Set("total_amount", amount.StringFixed(2))
	form.Set("currency", currency)
	form.Set("tran_id", paymentID)
	form.Set("success_url", fmt.Sprintf("%s/payments/%s/success", base, paymentID))
	form.Set("fail_url", fmt.Sprintf("%s/payments/%s/failed", base, paymentID))
	form.Set("cancel_url", fmt.Sprintf("%s/payments/%s/cancelled", base, paymentID))
	form.Set("ipn_url", fmt.Sprintf("%s/payments/%s/ipn", base, paymentID))
	form.Set("cus_name", customer.Name)
	form.Set("cus_email", customer.Email)
	form.Set("cus_phone", customer.Phone)
	form.Set("shipping_method", "NO")
	form.Set("num_of_item", "1")
	form.Set("product_name", "Seat")
	form.Set("product_category", "Ticket")
	form.Set("product_profile", "general")

	body, err := g.postForm(ctx, g.sessionURL, form)
	if err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "payment session request failed", Err: err}
	}

	var resp sslcommerzInitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "malformed payment session response", Err: err}
	}

	result := &domain.InitiateResult{
		Status:        resp.Status,
		RedirectURL:   resp.GatewayPageURL,
		TransactionID: paymentID,
		Raw:           body,
	}

	if resp.Status == "SUCCESS" {
		result.Success = true
	} else {
		result.FailReason = resp.FailedReason
		if result.FailReason == "" {
			result.FailReason = "payment session was rejected by the provider"
		}
	}

	return result, nil
}

type sslcommerzValidationResponse struct {
	Status string `json:"status"`
	TranID string `json:"tran_id"`
	Amount string `json:"amount"`
}

// VerifyPayment never trusts the IPN payload by itself: it takes the val_id
// the provider sent and confirms transaction id, status and amount against
// the validation API.
func (g *SSLCommerzGateway) VerifyPayment(
	ctx context.Context,
	transactionID string,
	amount decimal.Decimal,
	callback domain.CallbackData) (*domain.VerificationResult, error) {

	valID := callback["val_id"]
	if valID == "" {
		return &domain.VerificationResult{Success: false, Status: "MISSING_VAL_ID"}, nil
	}

	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", g.config.StoreID)
	query.Set("store_passwd", g.config.StorePassword)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.validationURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "payment validation request failed", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "payment validation request failed", Err: err}
	}

	var resp sslcommerzValidationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ProviderError{Gateway: g.Name(), Reason: "malformed payment validation response", Err: err}
	}

	amountMatches := false
	if validated, err := decimal.NewFromString(resp.Amount); err == nil {
		amountMatches = validated.Equal(amount)
	}

	success := (resp.Status == "VALID" || resp.Status == "VALIDATED") &&
		resp.TranID == transactionID &&
		amountMatches

	return &domain.VerificationResult{
		Success: success,
		Status:  resp.Status,
		Raw:     body,
	}, nil
}

func (g *SSLCommerzGateway) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	return io.ReadAll(res.Body)
}
