package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a committed order. Everything except fulfillment status and
// tracking metadata is frozen at commit time.
type Order struct {
	ID                    uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutID            uuid.UUID                    `gorm:"column:checkout_id;type:uuid;not null;uniqueIndex"`
	AccountID             uuid.UUID                    `gorm:"column:account_id;type:uuid;not null;index"`
	OrderNumber           string                       `gorm:"column:order_number;not null;uniqueIndex"`
	Sequence              int64                        `gorm:"column:sequence;not null;uniqueIndex"`
	Currency              enums.Currency               `gorm:"column:currency;type:text;not null"`
	SubtotalMinor         int64                        `gorm:"column:subtotal_minor;not null"`
	DiscountMinor         int64                        `gorm:"column:discount_minor;not null;default:0"`
	ShippingMinor         int64                        `gorm:"column:shipping_minor;not null;default:0"`
	TaxMinor              int64                        `gorm:"column:tax_minor;not null;default:0"`
	TotalMinor            int64                        `gorm:"column:total_minor;not null"`
	AmountPaidMinor       int64                        `gorm:"column:amount_paid_minor;not null"`
	Promotion             *types.PromotionSnapshot     `gorm:"column:promotion;type:jsonb;serializer:json"`
	ShippingAddress       types.ShippingAddress        `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	PaymentMethod         enums.PaymentMethod          `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus         enums.PaymentStatus          `gorm:"column:payment_status;type:text;not null"`
	GatewayIntentID       string                       `gorm:"column:gateway_intent_id;not null"`
	GatewayTransactionID  string                       `gorm:"column:gateway_transaction_id;not null"`
	GatewaySignature      string                       `gorm:"column:gateway_signature;not null"`
	PaidAt                time.Time                    `gorm:"column:paid_at;not null"`
	Status                enums.OrderStatus            `gorm:"column:order_status;type:text;not null;index"`
	TrackingNumber        *string                      `gorm:"column:tracking_number"`
	Notes                 *string                      `gorm:"column:notes"`
	IsSubscription        bool                         `gorm:"column:is_subscription;not null;default:false"`
	SubscriptionFrequency *enums.SubscriptionFrequency `gorm:"column:subscription_frequency;type:text"`
	NeedsReconciliation   bool                         `gorm:"column:needs_reconciliation;not null;default:false"`
	Items                 []OrderLineItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time                    `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt             time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// Pricing returns the frozen totals as a breakdown.
func (o *Order) Pricing() types.PricingBreakdown {
	return types.PricingBreakdown{
		SubtotalMinor: o.SubtotalMinor,
		DiscountMinor: o.DiscountMinor,
		ShippingMinor: o.ShippingMinor,
		TaxMinor:      o.TaxMinor,
		TotalMinor:    o.TotalMinor,
	}
}

// OrderCounter backs the monotonic order sequence.
type OrderCounter struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
