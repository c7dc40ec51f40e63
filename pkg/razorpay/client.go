package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	rzp "github.com/razorpay/razorpay-go"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNotConfigured means credentials are missing or still placeholders.
	ErrNotConfigured = errors.New("razorpay: gateway not configured")
	// ErrUnavailable means the request never reached the gateway.
	ErrUnavailable = errors.New("razorpay: gateway unavailable")
	// ErrOutcomeUnknown means the gateway may or may not have created the order.
	ErrOutcomeUnknown = errors.New("razorpay: outcome unknown")
	// ErrRejected means the gateway refused the request.
	ErrRejected = errors.New("razorpay: request rejected")
)

// APIError carries the gateway's error payload. It unwraps to one of the
// classification sentinels above.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	kind        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: status %d %s: %s", e.StatusCode, e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// Client wraps the Razorpay SDK with credential checks, per-call deadlines
// and failure classification.
type Client struct {
	sdk        *rzp.Client
	transport  *observingTransport
	keyID      string
	keySecret  string
	timeout    time.Duration
	configured bool
}

// NewClient builds a client from gateway configuration. An unconfigured
// client is returned rather than an error so the API can still boot; every
// call on it fails with ErrNotConfigured.
func NewClient(cfg config.GatewayConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	settings := clientSettings{baseURL: cfg.BaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	transport := newObservingTransport(settings.next(), settings.baseURL)

	sdk := rzp.NewClient(keyID, keySecret)
	sdk.Order.Request.HTTPClient = settings.httpClient(transport)

	return &Client{
		sdk:        sdk,
		transport:  transport,
		keyID:      keyID,
		keySecret:  keySecret,
		timeout:    timeout,
		configured: cfg.Configured(),
	}
}

// Configured reports whether real credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.configured
}

// KeyID is the publishable key handed to the storefront checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrderRequest is the payload for creating a payment order.
type CreateOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the subset of the gateway order resource the backend uses.
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
}

// CreateOrder registers a payment order. It is never retried: a timeout
// surfaces as ErrOutcomeUnknown because the order may already exist.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrRejected)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	callID := uuid.NewString()
	c.transport.begin(ctx, callID)
	body, err := c.sdk.Order.Create(data, map[string]string{callHeader: callID})
	observed := c.transport.end(callID)

	if err != nil || observed.status >= 300 || observed.err != nil {
		return nil, classify(observed, err)
	}
	return decodeOrder(body)
}

// VerifyPayment checks a checkout proof against the client's key secret.
func (c *Client) VerifyPayment(orderID, paymentID, signature string) bool {
	if c == nil || c.keySecret == "" {
		return false
	}
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

func decodeOrder(body map[string]interface{}) (*Order, error) {
	order := &Order{
		ID:       stringField(body, "id"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrOutcomeUnknown)
	}
	amount, ok := int64Field(body, "amount")
	if !ok {
		return nil, fmt.Errorf("%w: response missing amount", ErrOutcomeUnknown)
	}
	order.AmountMinor = amount
	return order, nil
}

func stringField(body map[string]interface{}, key string) string {
	value, _ := body[key].(string)
	return strings.TrimSpace(value)
}

func int64Field(body map[string]interface{}, key string) (int64, bool) {
	switch v := body[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
