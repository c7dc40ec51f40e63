package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Subscription asks for the order to repeat at the given cadence.
type Subscription struct {
	Enabled   bool                        `json:"enabled"`
	Frequency enums.SubscriptionFrequency `json:"frequency,omitempty"`
}

// CreateIntentInput starts a checkout for the caller's cart.
type CreateIntentInput struct {
	AccountID       uuid.UUID
	Lines           []pricing.CartLine
	PromotionCode   string
	ShippingAddress types.ShippingAddress
	Notes           *string
	Subscription    Subscription
}

// Intent is what the storefront needs to open the gateway's payment widget.
type Intent struct {
	CheckoutID      uuid.UUID                `json:"checkout_id"`
	GatewayIntentID string                   `json:"gateway_order_id"`
	KeyID           string                   `json:"key_id"`
	AmountMinor     int64                    `json:"amount_minor"`
	Currency        enums.Currency           `json:"currency"`
	Lines           []types.QuotedLine       `json:"lines"`
	Pricing         types.PricingBreakdown   `json:"pricing"`
	Promotion       *pricing.PromotionResult `json:"promotion,omitempty"`
	ExpiresAt       time.Time                `json:"expires_at"`
}

// ConfirmInput is the payment proof returned by the gateway widget.
type ConfirmInput struct {
	AccountID     uuid.UUID
	IntentID      string
	TransactionID string
	Signature     string
}

// ConfirmResult carries the committed order. Created is false when the
// order already existed for this checkout.
type ConfirmResult struct {
	Order   *orders.OrderDetail `json:"order"`
	Created bool                `json:"-"`
}

// ExpireResult summarises one expiry sweep.
type ExpireResult struct {
	Expired int
}
