package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CheckoutSession tracks one quote through payment to commit. Its ID is the
// correlation token shared with the gateway intent and the resulting order.
type CheckoutSession struct {
	ID                    uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	AccountID             uuid.UUID                    `gorm:"column:account_id;type:uuid;not null;index"`
	State                 enums.CheckoutState          `gorm:"column:state;type:text;not null;index"`
	Currency              enums.Currency               `gorm:"column:currency;type:text;not null"`
	Lines                 []types.QuotedLine           `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	Pricing               types.PricingBreakdown       `gorm:"column:pricing;type:jsonb;serializer:json;not null"`
	PromotionCode         *string                      `gorm:"column:promotion_code"`
	Promotion             *types.PromotionSnapshot     `gorm:"column:promotion;type:jsonb;serializer:json"`
	ShippingAddress       types.ShippingAddress        `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	Notes                 *string                      `gorm:"column:notes"`
	IsSubscription        bool                         `gorm:"column:is_subscription;not null;default:false"`
	SubscriptionFrequency *enums.SubscriptionFrequency `gorm:"column:subscription_frequency;type:text"`
	AmountMinor           int64                        `gorm:"column:amount_minor;not null"`
	GatewayIntentID       *string                      `gorm:"column:gateway_intent_id;uniqueIndex"`
	GatewayTransactionID  *string                      `gorm:"column:gateway_transaction_id"`
	GatewaySignature      *string                      `gorm:"column:gateway_signature"`
	OrderID               *uuid.UUID                   `gorm:"column:order_id;type:uuid"`
	FailureReason         *string                      `gorm:"column:failure_reason"`
	ExpiresAt             time.Time                    `gorm:"column:expires_at;not null;index"`
	VerifiedAt            *time.Time                   `gorm:"column:verified_at"`
	CommittedAt           *time.Time                   `gorm:"column:committed_at"`
	CreatedAt             time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CheckoutSession) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
