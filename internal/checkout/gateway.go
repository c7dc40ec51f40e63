package checkout

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
)

// GatewayIntent is a payment intent registered with the gateway.
type GatewayIntent struct {
	ID          string
	AmountMinor int64
	Currency    string
}

// PaymentGateway is the reconciler's view of the external payment provider.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency enums.Currency, receipt string, metadata map[string]string) (*GatewayIntent, error)
	Verify(intentID, transactionID, signature string) bool
	PublicKey() string
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway adapts the Razorpay client to PaymentGateway.
func NewRazorpayGateway(client *razorpay.Client) PaymentGateway {
	return &razorpayGateway{client: client}
}

func (g *razorpayGateway) CreateIntent(ctx context.Context, amountMinor int64, currency enums.Currency, receipt string, metadata map[string]string) (*GatewayIntent, error) {
	order, err := g.client.CreateOrder(ctx, razorpay.CreateOrderRequest{
		AmountMinor: amountMinor,
		Currency:    currency.String(),
		Receipt:     receipt,
		Notes:       metadata,
	})
	if err != nil {
		return nil, err
	}
	return &GatewayIntent{ID: order.ID, AmountMinor: order.AmountMinor, Currency: order.Currency}, nil
}

func (g *razorpayGateway) Verify(intentID, transactionID, signature string) bool {
	return g.client.VerifyPayment(intentID, transactionID, signature)
}

func (g *razorpayGateway) PublicKey() string {
	return g.client.KeyID()
}

// gatewayError maps gateway failures onto the API error taxonomy. Outcome-unknown
// failures are never retried here; the customer is told to check back later.
func gatewayError(err error) *pkgerrors.Error {
	switch {
	case errors.Is(err, razorpay.ErrNotConfigured):
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway is not configured")
	case errors.Is(err, razorpay.ErrUnavailable):
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway is unreachable")
	case errors.Is(err, razorpay.ErrOutcomeUnknown):
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnknown, err, "payment gateway did not confirm the intent")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway rejected the intent")
	}
}

func gatewayOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, razorpay.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, razorpay.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, razorpay.ErrOutcomeUnknown):
		return "unknown"
	default:
		return "rejected"
	}
}
