package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ListFilters narrow order listings. Nil fields are ignored.
type ListFilters struct {
	AccountID           *uuid.UUID
	Status              *enums.OrderStatus
	NeedsReconciliation *bool
}

// AdminFilters are the filters exposed on the admin order list.
type AdminFilters struct {
	Status              *enums.OrderStatus
	NeedsReconciliation *bool
}

// OrderSummary is one row of an order list.
type OrderSummary struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	AccountID           uuid.UUID           `json:"account_id"`
	Status              enums.OrderStatus   `json:"status"`
	PaymentStatus       enums.PaymentStatus `json:"payment_status"`
	TotalMinor          int64               `json:"total_minor"`
	Currency            enums.Currency      `json:"currency"`
	TotalItems          int                 `json:"total_items"`
	IsSubscription      bool                `json:"is_subscription"`
	NeedsReconciliation bool                `json:"needs_reconciliation"`
	CreatedAt           time.Time           `json:"created_at"`
}

// LineItem is the order line snapshot exposed to clients.
type LineItem struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant"`
	Name           string    `json:"name"`
	Thumbnail      *string   `json:"thumbnail,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	LineTotalMinor int64     `json:"line_total_minor"`
	Oversold       bool      `json:"oversold"`
}

// Payment is the payment block of an order. The gateway signature is never exposed.
type Payment struct {
	Method               enums.PaymentMethod `json:"method"`
	Status               enums.PaymentStatus `json:"status"`
	AmountPaidMinor      int64               `json:"amount_paid_minor"`
	GatewayIntentID      string              `json:"gateway_order_id"`
	GatewayTransactionID string              `json:"gateway_payment_id"`
	PaidAt               time.Time           `json:"paid_at"`
}

// OrderDetail is the full view of a committed order.
type OrderDetail struct {
	OrderSummary
	CheckoutID            uuid.UUID                    `json:"checkout_id"`
	Pricing               types.PricingBreakdown       `json:"pricing"`
	Promotion             *types.PromotionSnapshot     `json:"promotion,omitempty"`
	ShippingAddress       types.ShippingAddress        `json:"shipping_address"`
	Payment               Payment                      `json:"payment"`
	TrackingNumber        *string                      `json:"tracking_number,omitempty"`
	Notes                 *string                      `json:"notes,omitempty"`
	SubscriptionFrequency *enums.SubscriptionFrequency `json:"subscription_frequency,omitempty"`
	Items                 []LineItem                   `json:"items"`
	UpdatedAt             time.Time                    `json:"updated_at"`
}

func toSummary(order models.Order) OrderSummary {
	items := 0
	for _, item := range order.Items {
		items += item.Quantity
	}
	return OrderSummary{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		AccountID:           order.AccountID,
		Status:              order.Status,
		PaymentStatus:       order.PaymentStatus,
		TotalMinor:          order.TotalMinor,
		Currency:            order.Currency,
		TotalItems:          items,
		IsSubscription:      order.IsSubscription,
		NeedsReconciliation: order.NeedsReconciliation,
		CreatedAt:           order.CreatedAt,
	}
}

// ToDetail maps a persisted order onto its client view.
func ToDetail(order *models.Order) *OrderDetail {
	if order == nil {
		return nil
	}
	items := make([]LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItem{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantKey:     item.VariantKey,
			Name:           item.Name,
			Thumbnail:      item.Thumbnail,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
			LineTotalMinor: item.LineTotalMinor,
			Oversold:       item.Oversold,
		})
	}
	return &OrderDetail{
		OrderSummary:    toSummary(*order),
		CheckoutID:      order.CheckoutID,
		Pricing:         order.Pricing(),
		Promotion:       order.Promotion,
		ShippingAddress: order.ShippingAddress,
		Payment: Payment{
			Method:               order.PaymentMethod,
			Status:               order.PaymentStatus,
			AmountPaidMinor:      order.AmountPaidMinor,
			GatewayIntentID:      order.GatewayIntentID,
			GatewayTransactionID: order.GatewayTransactionID,
			PaidAt:               order.PaidAt,
		},
		TrackingNumber:        order.TrackingNumber,
		Notes:                 order.Notes,
		SubscriptionFrequency: order.SubscriptionFrequency,
		Items:                 items,
		UpdatedAt:             order.UpdatedAt,
	}
}
