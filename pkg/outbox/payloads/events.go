package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCommittedLine is the per-line summary carried by OrderCommittedEvent.
type OrderCommittedLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	LineTotalMinor int64     `json:"line_total_minor"`
	Oversold       bool      `json:"oversold"`
}

// OrderCommittedEvent is emitted once per checkout when its order is written.
type OrderCommittedEvent struct {
	OrderID             uuid.UUID            `json:"order_id"`
	OrderNumber         string               `json:"order_number"`
	CheckoutID          uuid.UUID            `json:"checkout_id"`
	AccountID           uuid.UUID            `json:"account_id"`
	Currency            enums.Currency       `json:"currency"`
	SubtotalMinor       int64                `json:"subtotal_minor"`
	DiscountMinor       int64                `json:"discount_minor"`
	ShippingMinor       int64                `json:"shipping_minor"`
	TaxMinor            int64                `json:"tax_minor"`
	TotalMinor          int64                `json:"total_minor"`
	PromotionCode       *string              `json:"promotion_code,omitempty"`
	PromotionRevoked    bool                 `json:"promotion_revoked"`
	NeedsReconciliation bool                 `json:"needs_reconciliation"`
	IsSubscription      bool                 `json:"is_subscription"`
	Lines               []OrderCommittedLine `json:"lines"`
	CommittedAt         time.Time            `json:"committed_at"`
}

// OrderFulfillmentUpdatedEvent is emitted when an admin moves an order along.
type OrderFulfillmentUpdatedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	AccountID      uuid.UUID         `json:"account_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ReconciliationFlaggedEvent is emitted for every recorded exception.
type ReconciliationFlaggedEvent struct {
	ExceptionID uuid.UUID           `json:"exception_id"`
	Kind        enums.ExceptionKind `json:"kind"`
	CheckoutID  uuid.UUID           `json:"checkout_id"`
	OrderID     *uuid.UUID          `json:"order_id,omitempty"`
	AccountID   uuid.UUID           `json:"account_id"`
	FlaggedAt   time.Time           `json:"flagged_at"`
}
