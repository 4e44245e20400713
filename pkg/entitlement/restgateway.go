package entitlement

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vaultgate/vaultgate/pkg/observability"
)

// RESTGateway talks to the payment provider's HTTP API. Payment method
// checks are deduplicated with singleflight so a burst of admissions for
// the same customer costs one upstream call.
type RESTGateway struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	client        *http.Client
	metrics       *observability.Metrics
	group         singleflight.Group
}

// NewRESTGateway creates a gateway client. metrics may be nil.
func NewRESTGateway(baseURL, apiKey, webhookSecret string, metrics *observability.Metrics) *RESTGateway {
	return &RESTGateway{
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 10 * time.Second},
		metrics:       metrics,
	}
}

func (g *RESTGateway) observe(operation string, err error, start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveGatewayCall(operation, err, time.Since(start))
	}
}

func (g *RESTGateway) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: upstream returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway rejected %s %s with status %d", method, path, resp.StatusCode)
	}
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return nil
}

// HasPaymentMethod reports whether the customer has a payment method on file
func (g *RESTGateway) HasPaymentMethod(ctx context.Context, customerID string) (bool, error) {
	start := time.Now()
	result, err, _ := g.group.Do("has-payment-method:"+customerID, func() (interface{}, error) {
		var payload struct {
			HasPaymentMethod bool `json:"has_payment_method"`
		}
		if err := g.do(ctx, http.MethodGet, "/v1/customers/"+customerID+"/payment-method", nil, &payload); err != nil {
			return false, err
		}
		return payload.HasPaymentMethod, nil
	})
	g.observe("has_payment_method", err, start)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// ListInvoices returns the customer's invoices
func (g *RESTGateway) ListInvoices(ctx context.Context, customerID string) ([]Invoice, error) {
	start := time.Now()
	var payload struct {
		Invoices []Invoice `json:"invoices"`
	}
	err := g.do(ctx, http.MethodGet, "/v1/customers/"+customerID+"/invoices", nil, &payload)
	g.observe("list_invoices", err, start)
	if err != nil {
		return nil, err
	}
	return payload.Invoices, nil
}

// Charge bills the customer immediately
func (g *RESTGateway) Charge(ctx context.Context, customerID string, amountCents int64, description string) error {
	start := time.Now()
	body := map[string]interface{}{
		"amount_cents": amountCents,
		"description":  description,
	}
	err := g.do(ctx, http.MethodPost, "/v1/customers/"+customerID+"/charges", body, nil)
	g.observe("charge", err, start)
	return err
}

// VerifyWebhook authenticates a webhook payload using HMAC-SHA256 and
// decodes the event.
func (g *RESTGateway) VerifyWebhook(payload []byte, signature string) (*CheckoutEvent, error) {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	event := &CheckoutEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return event, nil
}
